package webdav

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("webdav: transport failure")

	// ErrDoctype is returned when a response carries a DOCTYPE declaration.
	ErrDoctype = errors.New("webdav: DOCTYPE not allowed in response")

	// ErrInvalidRange is returned for a negative or inverted byte range.
	ErrInvalidRange = errors.New("webdav: invalid byte range")

	// ErrRangeMismatch is wrapped in the *TransportError returned when a
	// partial response does not start at the requested offset.
	ErrRangeMismatch = errors.New("webdav: server returned a different range")
)

// TransportError reports a failed WebDAV request: a network failure, a
// timeout, or an unexpected status code.
type TransportError struct {
	Op         string
	Path       string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("webdav: %s %s: %d %s: %v", e.Op, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("webdav: %s %s: %d %s", e.Op, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("webdav: %s %s: %v", e.Op, e.Path, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func statusError(op, path string, status int) error {
	return &TransportError{Op: op, Path: path, StatusCode: status}
}

func requestError(op, path string, err error) error {
	return &TransportError{Op: op, Path: path, Err: err}
}
