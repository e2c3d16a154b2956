package remotezip

import (
	"errors"
	"fmt"
)

// Sentinel errors for archive operations.
var (
	// ErrArchiveFormat is returned for a missing or invalid signature, a
	// truncated structure, or offsets outside the container.
	ErrArchiveFormat = errors.New("remotezip: invalid archive format")

	// ErrUnsupportedCompression matches every *UnsupportedCompressionError.
	ErrUnsupportedCompression = errors.New("remotezip: unsupported compression method")

	// ErrChecksum is returned when decoded entry data does not match the
	// CRC-32 recorded in the central directory.
	ErrChecksum = errors.New("remotezip: checksum mismatch")

	// ErrEntryNotFound is returned when a named entry is not in the index.
	ErrEntryNotFound = errors.New("remotezip: entry not found")

	// ErrEntryTooLarge is returned when an entry exceeds the reader's
	// maximum entry size.
	ErrEntryTooLarge = errors.New("remotezip: entry too large")
)

// UnsupportedCompressionError reports an entry compressed with a method
// other than Stored or Deflated.
type UnsupportedCompressionError struct {
	Name   string
	Method Method
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("remotezip: %s: unsupported compression method %d", e.Name, uint16(e.Method))
}

// Is reports whether target is ErrUnsupportedCompression.
func (e *UnsupportedCompressionError) Is(target error) bool {
	return target == ErrUnsupportedCompression
}

func formatError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrArchiveFormat}, args...)...)
}
