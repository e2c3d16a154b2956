package disk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/docview/cache"
)

var (
	_ cache.Cache   = (*Cache)(nil)
	_ cache.Toucher = (*Cache)(nil)
)

func TestCachePutGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	content := []byte("hello")
	key := cache.EntryKey("nas", "/a.zip", "hello.txt", 0, 5, 5, 1)

	if err := c.Put(key, content); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("Get() content = %q, want %q", got, content)
	}

	enc := key.Encoded()
	path := filepath.Join(dir, "sha256", enc[:defaultShardPrefixLen], enc)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected cache file at %s: %v", path, err)
	}

	// A second Put for the same key keeps the original content.
	if err := c.Put(key, []byte("other")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, _ = c.Get(key)
	if !bytes.Equal(got, content) {
		t.Fatalf("Get() after re-Put = %q, want %q", got, content)
	}
}

func TestCacheGetMissAndInvalidKey(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := c.Get(cache.EntryKey("", "/x.zip", "missing", 0, 0, 0, 0)); ok {
		t.Fatal("Get() ok = true for missing key")
	}
	if err := c.Put("not-a-digest", []byte("x")); err == nil {
		t.Fatal("Put() with invalid digest succeeded")
	}
}

func TestCacheNoSharding(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir, WithShardPrefixLen(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	key := cache.EntryKey("", "/b.zip", "b", 0, 1, 1, 0)
	if err := c.Put(key, []byte("b")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sha256", key.Encoded())); err != nil {
		t.Fatalf("expected unsharded cache file: %v", err)
	}
}

func TestCacheTouch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fixed := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	path := filepath.Join(dir, "download.bin")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := c.Touch(path); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !info.ModTime().Equal(fixed) {
		t.Fatalf("ModTime() = %v, want %v", info.ModTime(), fixed)
	}

	if err := c.Touch(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("Touch() on missing file succeeded")
	}
}

func TestCacheTouchLeavesForeignFiles(t *testing.T) {
	t.Parallel()

	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.now = func() time.Time { return time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC) }

	archive := filepath.Join(t.TempDir(), "book.cbz")
	if err := os.WriteFile(archive, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	mt := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(archive, mt, mt); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	for _, p := range []string{archive, filepath.Join(c.Dir(), "..", filepath.Base(archive)), c.Dir()} {
		if err := c.Touch(p); err != nil {
			t.Fatalf("Touch(%q) error = %v", p, err)
		}
	}
	info, err := os.Stat(archive)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !info.ModTime().Equal(mt) {
		t.Fatalf("foreign file ModTime() = %v, want %v", info.ModTime(), mt)
	}
}

func TestCacheUsageAndAbandonedWrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := digest.FromString("entry")
	if err := c.Put(key, bytes.Repeat([]byte{'e'}, 40)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	entryPath, err := c.path(key)
	if err != nil {
		t.Fatalf("path() error = %v", err)
	}
	write := func(path string, n int, mt time.Time) {
		t.Helper()
		if err := os.WriteFile(path, bytes.Repeat([]byte{'x'}, n), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if err := os.Chtimes(path, mt, mt); err != nil {
			t.Fatalf("Chtimes() error = %v", err)
		}
	}
	shard := filepath.Dir(entryPath)
	write(filepath.Join(dir, "vol1.cbz"), 100, now.Add(-time.Minute))
	write(filepath.Join(shard, "cache-abandoned"), 10, now.Add(-2*time.Hour))
	write(filepath.Join(shard, "cache-inflight"), 5, now)
	if err := os.Chtimes(entryPath, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	u, err := c.Usage()
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	want := Usage{Entries: 1, EntryBytes: 40, Downloads: 1, DownloadBytes: 100, TempBytes: 15}
	if u != want {
		t.Fatalf("Usage() = %+v, want %+v", u, want)
	}

	// The abandoned write goes first, then the older entry; the in-flight
	// write is counted but kept.
	freed, remaining, err := c.Prune(110)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if freed != 50 || remaining != 105 {
		t.Fatalf("Prune() = (%d, %d), want (50, 105)", freed, remaining)
	}
	if _, err := os.Stat(filepath.Join(shard, "cache-inflight")); err != nil {
		t.Fatalf("in-flight write was pruned: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Fatal("pruned entry still readable")
	}
}

func TestCachePruneRemovesEmptyShards(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Put(digest.FromString("only"), []byte("content")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, _, err := c.Prune(0); err != nil {
		t.Fatalf("Prune(0) error = %v", err)
	}
	left, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("cache root not empty after full prune: %v", left)
	}
}

func TestCachePruneOldestFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	names := []string{"old", "mid", "new"}
	for i, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, bytes.Repeat([]byte{'x'}, 100), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		mt := base.Add(time.Duration(i) * time.Hour)
		if err := os.Chtimes(path, mt, mt); err != nil {
			t.Fatalf("Chtimes() error = %v", err)
		}
	}

	size, err := c.Size()
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != 300 {
		t.Fatalf("Size() = %d, want 300", size)
	}

	// Touching "old" makes it the most recent, so "mid" goes first.
	c.now = func() time.Time { return base.Add(10 * time.Hour) }
	if err := c.Touch(filepath.Join(dir, "old")); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	freed, remaining, err := c.Prune(150)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if freed != 200 || remaining != 100 {
		t.Fatalf("Prune() = (%d, %d), want (200, 100)", freed, remaining)
	}
	if _, err := os.Stat(filepath.Join(dir, "old")); err != nil {
		t.Fatalf("recently touched file was pruned: %v", err)
	}
	for _, gone := range []string{"mid", "new"} {
		if _, err := os.Stat(filepath.Join(dir, gone)); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be pruned, stat err = %v", gone, err)
		}
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") succeeded")
	}
	if _, err := New(t.TempDir(), WithShardPrefixLen(-1)); err == nil {
		t.Fatal("New() with negative shard length succeeded")
	}
}
