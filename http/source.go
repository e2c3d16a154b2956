// Package http reads ZIP containers from plain HTTP servers with range
// requests, for hosts that serve files but do not speak WebDAV.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"
)

var (
	// ErrRangeUnsupported is returned when the server ignores Range headers.
	ErrRangeUnsupported = errors.New("http: range requests not supported")

	// ErrModified is returned when the resource changed after the source
	// was opened.
	ErrModified = errors.New("http: resource modified")
)

// Source implements remotezip.Source over HTTP range requests.
//
// The validators seen when the source is opened are sent with every read
// so that a container replaced on the server fails with ErrModified
// instead of mixing bytes from two versions.
type Source struct {
	url          string
	client       *nethttp.Client
	headers      nethttp.Header
	logger       *slog.Logger
	size         int64
	etag         string
	lastModified string
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithLogger sets the logger for request diagnostics.
// By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource probes url for its size and validators and returns a Source.
func NewSource(ctx context.Context, url string, opts ...Option) (*Source, error) {
	s := &Source{
		url:    url,
		client: nethttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}
	if err := s.probe(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Source) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.New(slog.DiscardHandler)
}

// URL returns the resource address.
func (s *Source) URL() string {
	return s.url
}

// Size returns the length of the resource.
func (s *Source) Size(context.Context) (int64, error) {
	return s.size, nil
}

// ReadRange returns up to length bytes at off.
func (s *Source) ReadRange(ctx context.Context, off, length int64) ([]byte, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("http: read range %d+%d: negative offset or length", off, length)
	}
	if off >= s.size || length == 0 {
		return []byte{}, nil
	}
	length = min(length, s.size-off)

	req, err := s.newRequest(ctx, nethttp.MethodGet)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+length-1))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp.Body)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusPreconditionFailed:
		return nil, fmt.Errorf("%w: %s", ErrModified, s.url)
	case nethttp.StatusOK:
		return nil, ErrRangeUnsupported
	default:
		return nil, fmt.Errorf("http: range request failed: %s", resp.Status)
	}

	buf := make([]byte, length)
	n, err := io.ReadFull(resp.Body, buf)
	if err != nil {
		return nil, fmt.Errorf("http: short range body (%d of %d bytes): %w", n, length, err)
	}
	s.log().Debug("range read", "url", s.url, "offset", off, "length", length)
	return buf, nil
}

// probe learns the size from HEAD when it is trustworthy, and confirms
// range support with a one-byte request.
func (s *Source) probe(ctx context.Context) error {
	headSize := int64(-1)
	if req, err := s.newRequest(ctx, nethttp.MethodHead); err == nil {
		if resp, err := s.client.Do(req); err == nil {
			if resp.StatusCode == nethttp.StatusOK {
				headSize = resp.ContentLength
				s.etag = resp.Header.Get("ETag")
				s.lastModified = resp.Header.Get("Last-Modified")
			}
			drainClose(resp.Body)
		}
	}

	req, err := s.newRequest(ctx, nethttp.MethodGet)
	if err != nil {
		return err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer drainClose(resp.Body)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusOK:
		return ErrRangeUnsupported
	default:
		return fmt.Errorf("http: range probe failed: %s", resp.Status)
	}

	size, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return err
	}
	if headSize > 0 && headSize != size {
		return fmt.Errorf("http: content size mismatch: head=%d range=%d", headSize, size)
	}
	if s.etag == "" {
		s.etag = resp.Header.Get("ETag")
	}
	if s.lastModified == "" {
		s.lastModified = resp.Header.Get("Last-Modified")
	}
	s.size = size
	return nil
}

func (s *Source) newRequest(ctx context.Context, method string) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, s.url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if method == nethttp.MethodGet {
		if s.etag != "" && req.Header.Get("If-Match") == "" {
			req.Header.Set("If-Match", s.etag)
		}
		if s.lastModified != "" && req.Header.Get("If-Unmodified-Since") == "" {
			req.Header.Set("If-Unmodified-Since", s.lastModified)
		}
	}
	return req, nil
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

// parseContentRange returns the complete length from "bytes a-b/size".
func parseContentRange(value string) (int64, error) {
	value = strings.TrimSpace(value)
	rest, ok := strings.CutPrefix(value, "bytes ")
	if !ok {
		return 0, fmt.Errorf("http: invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("http: invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("http: invalid Content-Range %q", value)
	}
	return size, nil
}
