// Package remotezip reads ZIP containers through ranged reads.
//
// BuildIndex fetches only the tail of a container and its central
// directory; Reader fetches one entry's local header and compressed bytes
// on demand. Neither ever reads the whole container.
package remotezip

import (
	"strings"
)

// Method is a ZIP compression method.
type Method uint16

// Supported compression methods.
const (
	MethodStored   Method = 0
	MethodDeflated Method = 8
)

// Supported reports whether entries using m can be decoded.
func (m Method) Supported() bool {
	return m == MethodStored || m == MethodDeflated
}

func (m Method) String() string {
	switch m {
	case MethodStored:
		return "stored"
	case MethodDeflated:
		return "deflated"
	default:
		return "unsupported"
	}
}

// Entry is one central directory record.
type Entry struct {
	Name              string
	LocalHeaderOffset uint64
	CompressedSize    uint64
	UncompressedSize  uint64
	Method            Method
	CRC32             uint32
	Flags             uint16
}

// IsDir reports whether the entry names a directory.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}
