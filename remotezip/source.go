package remotezip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Source is random access to the bytes of one container.
//
// ReadRange returns up to length bytes starting at off; it returns fewer
// only when the range runs past the end of the container.
type Source interface {
	Size(ctx context.Context) (int64, error)
	ReadRange(ctx context.Context, off, length int64) ([]byte, error)
}

// ReaderAtSource adapts an io.ReaderAt of known size.
type ReaderAtSource struct {
	r    io.ReaderAt
	size int64
}

// NewReaderAtSource returns a Source reading from r, which holds size bytes.
func NewReaderAtSource(r io.ReaderAt, size int64) *ReaderAtSource {
	return &ReaderAtSource{r: r, size: size}
}

// Size returns the container length.
func (s *ReaderAtSource) Size(context.Context) (int64, error) {
	return s.size, nil
}

// ReadRange reads length bytes at off.
func (s *ReaderAtSource) ReadRange(ctx context.Context, off, length int64) ([]byte, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("remotezip: read range %d+%d: negative offset or length", off, length)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if off >= s.size {
		return []byte{}, nil
	}
	if length > s.size-off {
		length = s.size - off
	}
	buf := make([]byte, length)
	n, err := s.r.ReadAt(buf, off)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == length) {
		return nil, err
	}
	return buf[:n], nil
}

// FileSource is a Source over a local file.
type FileSource struct {
	*ReaderAtSource
	f *os.File
}

// OpenFile opens the local container at path.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, &os.PathError{Op: "open", Path: path, Err: errors.New("is a directory")}
	}
	return &FileSource{ReaderAtSource: NewReaderAtSource(f, info.Size()), f: f}, nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}
