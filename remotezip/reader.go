package remotezip

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"

	"github.com/klauspost/compress/flate"

	"github.com/meigma/docview/internal/sizing"
)

const (
	// DefaultHeaderSlack is the over-read past the local header and name,
	// sized to cover the extra field without a second round trip.
	DefaultHeaderSlack = 512

	// DefaultMaxEntrySize is the largest entry ReadEntry will decode (256MB).
	DefaultMaxEntrySize = 256 << 20
)

// Reader decodes individual entries of one container.
type Reader struct {
	src          Source
	headerSlack  int
	maxEntrySize uint64
	logger       *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithHeaderSlack sets how many bytes past the local header and name are
// fetched speculatively. When the extra field is longer, or the slack
// does not also cover the entry data, a second read is issued.
func WithHeaderSlack(n int) Option {
	return func(r *Reader) {
		if n >= 0 {
			r.headerSlack = n
		}
	}
}

// WithMaxEntrySize limits the uncompressed size of decoded entries.
func WithMaxEntrySize(limit uint64) Option {
	return func(r *Reader) {
		r.maxEntrySize = limit
	}
}

// WithLogger sets the logger for read diagnostics.
// By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader returns a Reader over src.
func NewReader(src Source, opts ...Option) *Reader {
	r := &Reader{
		src:          src,
		headerSlack:  DefaultHeaderSlack,
		maxEntrySize: DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.New(slog.DiscardHandler)
}

// ReadEntry returns the decompressed bytes of e.
//
// The local header is fetched together with a speculative window; the
// compressed data is then fetched with one exact read unless the window
// already covered it. Decoded data is checked against the entry's
// recorded size and CRC-32.
func (r *Reader) ReadEntry(ctx context.Context, e Entry) ([]byte, error) {
	if !e.Method.Supported() {
		return nil, &UnsupportedCompressionError{Name: e.Name, Method: e.Method}
	}
	if e.UncompressedSize > r.maxEntrySize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrEntryTooLarge, e.Name, e.UncompressedSize, r.maxEntrySize)
	}

	size, err := r.src.Size(ctx)
	if err != nil {
		return nil, err
	}
	if !sizing.Within(e.LocalHeaderOffset, localHeaderLen, size) {
		return nil, formatError("entry %q: local header offset %d outside container", e.Name, e.LocalHeaderOffset)
	}
	hdrOff := int64(e.LocalHeaderOffset) //nolint:gosec // bounded by size above

	window := min(int64(localHeaderLen+len(e.Name)+r.headerSlack), size-hdrOff)
	head, err := r.src.ReadRange(ctx, hdrOff, window)
	if err != nil {
		return nil, err
	}
	if len(head) < localHeaderLen || binary.LittleEndian.Uint32(head) != sigLocalHeader {
		return nil, formatError("entry %q: bad local file header signature", e.Name)
	}
	nameLen := uint64(binary.LittleEndian.Uint16(head[26:]))
	extraLen := uint64(binary.LittleEndian.Uint16(head[28:]))

	dataOff := e.LocalHeaderOffset + localHeaderLen + nameLen + extraLen
	if !sizing.Within(dataOff, e.CompressedSize, size) {
		return nil, formatError("entry %q: data %d+%d exceeds container of %d bytes", e.Name, dataOff, e.CompressedSize, size)
	}
	csize, err := sizing.ToInt(e.CompressedSize, ErrEntryTooLarge)
	if err != nil {
		return nil, err
	}

	var data []byte
	if rel := dataOff - e.LocalHeaderOffset; rel+e.CompressedSize <= uint64(len(head)) {
		data = head[rel : rel+e.CompressedSize]
	} else {
		r.log().Debug("fetching entry data", "entry", e.Name, "offset", dataOff, "bytes", csize)
		data, err = r.src.ReadRange(ctx, int64(dataOff), int64(csize)) //nolint:gosec // bounded by size above
		if err != nil {
			return nil, err
		}
		if len(data) != csize {
			return nil, formatError("entry %q: short read of %d/%d bytes", e.Name, len(data), csize)
		}
	}

	out, err := r.decode(e, data)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != e.UncompressedSize {
		return nil, formatError("entry %q: decoded %d bytes, expected %d", e.Name, len(out), e.UncompressedSize)
	}
	if crc32.ChecksumIEEE(out) != e.CRC32 {
		return nil, fmt.Errorf("%w: %s", ErrChecksum, e.Name)
	}
	return out, nil
}

func (r *Reader) decode(e Entry, data []byte) ([]byte, error) {
	switch e.Method {
	case MethodStored:
		return bytes.Clone(data), nil
	case MethodDeflated:
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		out, err := sizing.ReadAllWithLimit(fr, r.maxEntrySize, ErrEntryTooLarge)
		if err != nil {
			if errors.Is(err, ErrEntryTooLarge) {
				return nil, fmt.Errorf("%w: %s", err, e.Name)
			}
			return nil, formatError("entry %q: inflate: %v", e.Name, err)
		}
		return out, nil
	default:
		return nil, &UnsupportedCompressionError{Name: e.Name, Method: e.Method}
	}
}

// ReadNamed looks name up in ix and reads it through r.
func (r *Reader) ReadNamed(ctx context.Context, ix *Index, name string) ([]byte, error) {
	e, ok := ix.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return r.ReadEntry(ctx, e)
}
