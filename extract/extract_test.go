package extract

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipEntry struct {
	name string
	body string
}

func writeZip(t *testing.T, path string, entries ...zipEntry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate})
		require.NoError(t, err)
		if e.body != "" {
			_, err = w.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// writeRar writes a RAR 1.5 archive holding stored entries. Names ending
// in "/" become directories.
func writeRar(t *testing.T, path string, entries ...zipEntry) {
	t.Helper()

	block := func(htype byte, flags uint16, body []byte) []byte {
		b := make([]byte, 7, 7+len(body))
		b[2] = htype
		binary.LittleEndian.PutUint16(b[3:], flags)
		binary.LittleEndian.PutUint16(b[5:], uint16(7+len(body)))
		b = append(b, body...)
		binary.LittleEndian.PutUint16(b, uint16(crc32.ChecksumIEEE(b[2:])))
		return b
	}

	var buf bytes.Buffer
	buf.WriteString("Rar!\x1a\x07\x00")
	buf.Write(block(0x73, 0, make([]byte, 6)))
	for _, e := range entries {
		name := strings.TrimSuffix(e.name, "/")
		flags := uint16(0x8000)
		attr := uint32(0o100644)
		if name != e.name {
			flags |= 0x00e0
			attr = 0o40755
		}
		body := binary.LittleEndian.AppendUint32(nil, uint32(len(e.body))) // packed size
		body = binary.LittleEndian.AppendUint32(body, uint32(len(e.body)))
		body = append(body, 3) // unix host
		body = binary.LittleEndian.AppendUint32(body, crc32.ChecksumIEEE([]byte(e.body)))
		body = binary.LittleEndian.AppendUint32(body, 0x00210000) // 1980-01-01
		body = append(body, 20, 0x30)                             // version 2.0, stored
		body = binary.LittleEndian.AppendUint16(body, uint16(len(name)))
		body = binary.LittleEndian.AppendUint32(body, attr)
		body = append(body, name...)
		buf.Write(block(0x74, flags, body))
		buf.WriteString(e.body)
	}
	buf.Write(block(0x7b, 0, nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func assertTree(t *testing.T, dest string, want map[string]string) {
	t.Helper()
	for name, body := range want {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.Equal(t, body, string(got), name)
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{path: "book.zip", want: "zip"},
		{path: "comic.CBZ", want: "zip"},
		{path: "novel.epub", want: "zip"},
		{path: "pack.rar", want: "rar"},
		{path: "comic.cbr", want: "rar"},
		{path: "pack.7z", want: "7z"},
		{path: "comic.cb7", want: "7z"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			f, err := FormatFor(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Name())
		})
	}

	_, err := FormatFor("notes.txt")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	dest := filepath.Join("tmp", "out")
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "a.txt", want: filepath.Join(dest, "a.txt")},
		{name: "dir/sub/b.txt", want: filepath.Join(dest, "dir", "sub", "b.txt")},
		{name: "dir/../c.txt", want: filepath.Join(dest, "c.txt")},
		{name: `win\path\d.txt`, want: filepath.Join(dest, "win", "path", "d.txt")},
		{name: "../../etc/passwd", wantErr: true},
		{name: "dir/../../escape", wantErr: true},
		{name: "..", wantErr: true},
		{name: "/etc/passwd", wantErr: true},
		{name: `\evil`, wantErr: true},
		{name: "C:/Windows/evil", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := SafeJoin(dest, tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrPathTraversal)
				var pathErr *fs.PathError
				require.ErrorAs(t, err, &pathErr)
				assert.Equal(t, tt.name, pathErr.Path)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "in.zip")
	writeZip(t, src,
		zipEntry{name: "top.txt", body: "top"},
		zipEntry{name: "nested/"},
		zipEntry{name: "nested/deep/file.txt", body: "deep content"},
		zipEntry{name: "그림/1.txt", body: "hangul dir"},
	)
	dest := filepath.Join(dir, "out")

	stats, err := Extract(context.Background(), src, dest)
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 3, Dirs: 1, Bytes: int64(len("top") + len("deep content") + len("hangul dir"))}, stats)

	for path, want := range map[string]string{
		"top.txt":              "top",
		"nested/deep/file.txt": "deep content",
		"그림/1.txt":             "hangul dir",
	} {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(path)))
		require.NoError(t, err, path)
		assert.Equal(t, want, string(got))
	}
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")
	writeZip(t, src,
		zipEntry{name: "ok.txt", body: "fine"},
		zipEntry{name: "../../etc/passwd", body: "pwned"},
		zipEntry{name: "after.txt", body: "never written"},
	)
	dest := filepath.Join(dir, "a", "b", "out")

	stats, err := Extract(context.Background(), src, dest)
	require.ErrorIs(t, err, ErrPathTraversal)
	assert.Equal(t, 1, stats.Files)

	_, statErr := os.Stat(filepath.Join(dir, "a", "etc", "passwd"))
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
	_, statErr = os.Stat(filepath.Join(dest, "after.txt"))
	assert.True(t, errors.Is(statErr, fs.ErrNotExist), "extraction must abort at the offending entry")
}

func TestExtractZip_MaxEntrySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "big.zip")
	writeZip(t, src, zipEntry{name: "big.txt", body: strings.Repeat("x", 100)})
	dest := filepath.Join(dir, "out")

	_, err := Extract(context.Background(), src, dest, WithMaxEntrySize(10))
	require.ErrorIs(t, err, ErrEntryTooLarge)
	_, statErr := os.Stat(filepath.Join(dest, "big.txt"))
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
}

func TestExtract_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "in.zip")
	writeZip(t, src, zipEntry{name: "a.txt", body: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Extract(ctx, src, filepath.Join(dir, "out"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractRar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "vol1.cbr")
	writeRar(t, src,
		zipEntry{name: "book/"},
		zipEntry{name: "book/001.txt", body: "page one"},
		zipEntry{name: "book/002.txt", body: "page two"},
		zipEntry{name: "readme.txt", body: "hello"},
	)
	dest := filepath.Join(dir, "out")

	stats, err := Extract(context.Background(), src, dest)
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 3, Dirs: 1, Bytes: 21}, stats)
	assertTree(t, dest, map[string]string{
		"book/001.txt": "page one",
		"book/002.txt": "page two",
		"readme.txt":   "hello",
	})
}

func TestExtractRar_RejectsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "evil.rar")
	writeRar(t, src,
		zipEntry{name: "ok.txt", body: "fine"},
		zipEntry{name: "../evil.txt", body: "pwned"},
		zipEntry{name: "after.txt", body: "never written"},
	)
	dest := filepath.Join(dir, "out")

	stats, err := Extract(context.Background(), src, dest)
	require.ErrorIs(t, err, ErrPathTraversal)
	assert.Equal(t, Stats{Files: 1, Bytes: 4}, stats)

	_, statErr := os.Stat(filepath.Join(dir, "evil.txt"))
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
	_, statErr = os.Stat(filepath.Join(dest, "after.txt"))
	assert.True(t, errors.Is(statErr, fs.ErrNotExist), "extraction must abort at the offending entry")
}

func TestExtract7z(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out")
	stats, err := Extract(context.Background(), filepath.Join("testdata", "tree.7z"), dest)
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 3, Dirs: 1, Bytes: 21}, stats)
	assertTree(t, dest, map[string]string{
		"book/001.txt": "page one",
		"book/002.txt": "page two",
		"readme.txt":   "hello",
	})
}

func TestExtract7z_RejectsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out")
	stats, err := Extract(context.Background(), filepath.Join("testdata", "traversal.7z"), dest)
	require.ErrorIs(t, err, ErrPathTraversal)
	assert.Equal(t, Stats{Files: 1, Bytes: 4}, stats)

	_, statErr := os.Stat(filepath.Join(dir, "evil.txt"))
	assert.True(t, errors.Is(statErr, fs.ErrNotExist))
	_, statErr = os.Stat(filepath.Join(dest, "after.txt"))
	assert.True(t, errors.Is(statErr, fs.ErrNotExist), "extraction must abort at the offending entry")
}

func TestExtract_InvalidArchives(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"bad.zip", "bad.rar", "bad.7z"} {
		src := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(src, []byte("definitely not an archive"), 0o600))
		_, err := Extract(context.Background(), src, filepath.Join(dir, "out-"+name))
		require.Error(t, err, name)
	}
}

// The sink is shared by every format, so the traversal policy is identical
// for zip, rar and 7z entries.
func TestSink_UniformTraversalPolicy(t *testing.T) {
	t.Parallel()

	s, err := newSink(t.TempDir(), &config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.ErrorIs(t, s.file(context.Background(), "../x", 0o644, strings.NewReader("x")), ErrPathTraversal)
	require.ErrorIs(t, s.dir("/abs"), ErrPathTraversal)
	require.NoError(t, s.file(context.Background(), "ok/y", 0, strings.NewReader("y")))
	assert.Equal(t, Stats{Files: 1, Bytes: 1}, s.stats)
}
