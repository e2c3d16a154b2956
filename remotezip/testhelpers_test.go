package remotezip

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

type testFile struct {
	name    string
	body    []byte
	method  uint16
	nonUTF8 bool
}

// buildZip writes files into an in-memory archive with the given comment.
func buildZip(t *testing.T, comment string, files ...testFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.name, Method: f.method, NonUTF8: f.nonUTF8})
		require.NoError(t, err)
		if len(f.body) > 0 {
			_, err = w.Write(f.body)
			require.NoError(t, err)
		}
	}
	if comment != "" {
		require.NoError(t, zw.SetComment(comment))
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type readRange struct {
	off, length int64
}

// countingSource records every ranged read issued against it.
type countingSource struct {
	*ReaderAtSource

	mu    sync.Mutex
	reads []readRange
}

func newCountingSource(data []byte) *countingSource {
	return &countingSource{ReaderAtSource: NewReaderAtSource(bytes.NewReader(data), int64(len(data)))}
}

func (s *countingSource) ReadRange(ctx context.Context, off, length int64) ([]byte, error) {
	s.mu.Lock()
	s.reads = append(s.reads, readRange{off: off, length: length})
	s.mu.Unlock()
	return s.ReaderAtSource.ReadRange(ctx, off, length)
}

func (s *countingSource) Reads() []readRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]readRange(nil), s.reads...)
}
