package docview

import (
	"errors"

	"github.com/meigma/docview/extract"
	"github.com/meigma/docview/remotezip"
	"github.com/meigma/docview/textindex"
	"github.com/meigma/docview/webdav"
)

// ErrUnknownServer is returned when a server ID has not been registered.
var ErrUnknownServer = errors.New("docview: unknown server")

// Errors re-exported from remotezip.
var (
	// ErrArchiveFormat is returned for a missing or invalid ZIP structure.
	ErrArchiveFormat = remotezip.ErrArchiveFormat

	// ErrUnsupportedCompression is returned for entries neither stored
	// nor deflated.
	ErrUnsupportedCompression = remotezip.ErrUnsupportedCompression

	// ErrChecksum is returned when decoded content fails its CRC-32 check.
	ErrChecksum = remotezip.ErrChecksum

	// ErrEntryNotFound is returned when a container has no entry with the
	// requested name.
	ErrEntryNotFound = remotezip.ErrEntryNotFound

	// ErrEntryTooLarge is returned when an entry exceeds the size limit.
	ErrEntryTooLarge = remotezip.ErrEntryTooLarge
)

// Errors re-exported from webdav.
var (
	// ErrTransport matches every network, timeout and status failure.
	ErrTransport = webdav.ErrTransport

	// ErrDoctype is returned when a server response declares a DOCTYPE.
	ErrDoctype = webdav.ErrDoctype
)

// ErrNotIndexed is returned by ReadLines for a file that has not been indexed.
var ErrNotIndexed = textindex.ErrNotIndexed

// ErrPathTraversal is returned when an archive entry would be written
// outside the destination directory.
var ErrPathTraversal = extract.ErrPathTraversal

// TransportError describes a failed WebDAV request.
type TransportError = webdav.TransportError

// UnsupportedCompressionError names the compression method of an entry
// that cannot be decoded.
type UnsupportedCompressionError = remotezip.UnsupportedCompressionError
