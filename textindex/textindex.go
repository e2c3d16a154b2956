// Package textindex builds line-offset indexes over large local text
// files and serves line-range reads without loading whole files.
package textindex

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/meigma/docview/charset"
)

const (
	// DefaultSampleSize is how many leading bytes feed charset detection.
	DefaultSampleSize = 64 << 10

	// progressStep is the minimum advance between progress callbacks.
	progressStep = 0.05

	scanBufferSize = 256 << 10
)

// ErrNotIndexed is returned when lines are read before an index exists.
var ErrNotIndexed = errors.New("textindex: file not indexed")

// ProgressFunc receives the indexed fraction of the file, in [0, 1].
type ProgressFunc func(fraction float64)

type config struct {
	charset    charset.Charset
	progress   ProgressFunc
	logger     *slog.Logger
	sampleSize int
}

// Option configures Build.
type Option func(*config)

// WithCharset skips detection and decodes the file as cs.
func WithCharset(cs charset.Charset) Option {
	return func(c *config) {
		c.charset = cs
	}
}

// WithProgress sets a callback for scan progress. It is called at most
// once per 5% advance, ending with exactly one call with 1.
func WithProgress(fn ProgressFunc) Option {
	return func(c *config) {
		c.progress = fn
	}
}

// WithLogger sets the logger for build diagnostics.
// By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithSampleSize sets how many leading bytes are used to detect the charset.
func WithSampleSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.sampleSize = n
		}
	}
}

// Index records where every line of one file starts.
// It is immutable once built.
type Index struct {
	path    string
	offsets []int64
	charset charset.Charset
	size    int64
}

// Build scans the file at path once and returns its line index.
// An empty file yields an index with zero lines.
func Build(ctx context.Context, path string, opts ...Option) (*Index, error) {
	cfg := config{sampleSize: DefaultSampleSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &os.PathError{Op: "index", Path: path, Err: errors.New("is a directory")}
	}
	size := info.Size()

	cs := cfg.charset
	if cs == "" {
		sample := make([]byte, min(size, int64(cfg.sampleSize)))
		if _, err := io.ReadFull(f, sample); err != nil {
			return nil, fmt.Errorf("textindex: read sample: %w", err)
		}
		cs = charset.Detect(sample)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}

	report := newProgress(cfg.progress)
	offsets, err := scanLines(ctx, f, size, lineFeed(cs), report)
	if err != nil {
		return nil, err
	}
	report.done()

	logger.Debug("text index built", "path", path, "charset", cs, "lines", len(offsets), "bytes", size)
	return &Index{path: path, offsets: offsets, charset: cs, size: size}, nil
}

// lineFeed returns the encoded form of U+000A in cs. Every other
// supported charset keeps ASCII bytes as is.
func lineFeed(cs charset.Charset) []byte {
	switch cs {
	case charset.UTF16LE:
		return []byte{'\n', 0}
	case charset.UTF16BE:
		return []byte{0, '\n'}
	default:
		return []byte{'\n'}
	}
}

// scanLines returns the start offset of every line. The offset after a
// trailing newline is not recorded since no line starts there.
func scanLines(ctx context.Context, r io.Reader, size int64, lf []byte, report *progress) ([]int64, error) {
	if size == 0 {
		return nil, nil
	}
	offsets := []int64{0}
	br := bufio.NewReaderSize(r, scanBufferSize)
	buf := make([]byte, scanBufferSize)
	var pos int64
	var first byte // leading byte of the current UTF-16 unit

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := br.Read(buf)
		for i, b := range buf[:n] {
			at := pos + int64(i)
			switch {
			case len(lf) == 1:
				if b == '\n' && at+1 < size {
					offsets = append(offsets, at+1)
				}
			case at&1 == 0:
				first = b
			case first == lf[0] && b == lf[1] && at+1 < size:
				offsets = append(offsets, at+1)
			}
		}
		pos += int64(n)
		report.update(float64(pos) / float64(size))

		if errors.Is(err, io.EOF) {
			return offsets, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Path returns the indexed file.
func (ix *Index) Path() string { return ix.path }

// Lines returns the number of lines.
func (ix *Index) Lines() int { return len(ix.offsets) }

// Charset returns the charset used to decode lines.
func (ix *Index) Charset() charset.Charset { return ix.charset }

// Size returns the file size at build time.
func (ix *Index) Size() int64 { return ix.size }

// Offsets returns a copy of the line start offsets.
func (ix *Index) Offsets() []int64 { return slices.Clone(ix.offsets) }

// ReadLines returns count lines starting at the 1-based line start,
// decoded and NFC-normalized. Requests past the last line return "".
// The range is clamped to the end of the file.
func (ix *Index) ReadLines(start, count int) (string, error) {
	if ix == nil {
		return "", ErrNotIndexed
	}
	if start < 1 || count < 1 || start > len(ix.offsets) {
		return "", nil
	}
	from := ix.offsets[start-1]
	to := ix.size
	if count < len(ix.offsets)-(start-1) {
		to = ix.offsets[start-1+count]
	}

	f, err := os.Open(ix.path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, to-from)
	n, err := f.ReadAt(buf, from)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return norm.NFC.String(charset.DecodeString(buf[:n], ix.charset)), nil
}
