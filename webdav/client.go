// Package webdav is a read-only WebDAV client: PROPFIND listings, ranged
// and full GETs, and downloads to disk.
package webdav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Client talks to one WebDAV server. It is safe for concurrent use; the
// only shared state is the underlying connection pool.
type Client struct {
	base      *url.URL
	http      *http.Client
	username  string
	password  string
	userAgent string
	timeouts  Timeouts
	logger    *slog.Logger
}

// New creates a client for the server rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("webdav: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("webdav: unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("webdav: base url %q has no host", baseURL)
	}
	u.RawQuery = ""
	u.Fragment = ""

	c := &Client{
		base:     u,
		timeouts: DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Transport: newTransport(c.timeouts)}
	}
	return c, nil
}

// BaseURL returns the server root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

func (c *Client) newRequest(ctx context.Context, method, p string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(p), body)
	if err != nil {
		return nil, err
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept-Encoding", "identity")
	return req, nil
}

func (c *Client) do(req *http.Request, op, p string) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.log().Debug("webdav request failed", "op", op, "path", p, "error", err)
		return nil, requestError(op, p, err)
	}
	c.log().Debug("webdav request", "op", op, "method", req.Method, "path", p, "status", resp.StatusCode)
	return resp, nil
}

// List returns the members of the collection at p. The collection itself
// is not included.
func (c *Client) List(ctx context.Context, p string) ([]Entry, error) {
	ms, err := c.propfind(ctx, "list", p, "1")
	if err != nil {
		return nil, err
	}
	self := cleanPath(p)
	entries := make([]Entry, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		e, ok := c.entryFromResponse(r)
		if !ok || e.Path == self {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Stat returns the properties of the resource at p.
func (c *Client) Stat(ctx context.Context, p string) (Entry, error) {
	ms, err := c.propfind(ctx, "stat", p, "0")
	if err != nil {
		return Entry{}, err
	}
	for _, r := range ms.Responses {
		if e, ok := c.entryFromResponse(r); ok {
			return e, nil
		}
	}
	return Entry{}, &TransportError{Op: "stat", Path: p, Err: errors.New("empty multistatus response")}
}

// Size returns the content length of the resource at p, or 0 when the
// server does not report one.
func (c *Client) Size(ctx context.Context, p string) (int64, error) {
	e, err := c.Stat(ctx, p)
	if err != nil {
		return 0, err
	}
	return e.Size, nil
}

// CheckConnection probes the server root and reports whether it answered
// a PROPFIND successfully.
func (c *Client) CheckConnection(ctx context.Context) bool {
	_, err := c.propfind(ctx, "check", "/", "0")
	if err != nil {
		c.log().Info("webdav connection check failed", "url", c.base.Redacted(), "error", err)
		return false
	}
	return true
}

// ReadRange returns bytes start..endInclusive of the resource at p.
//
// A 206 response is read as is. Servers that ignore Range answer 200 with
// the whole body, which is sliced locally. Fewer bytes than requested are
// returned when the range runs past the end of the resource.
func (c *Client) ReadRange(ctx context.Context, p string, start, endInclusive int64) ([]byte, error) {
	if start < 0 || endInclusive < start {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidRange, start, endInclusive)
	}
	req, err := c.newRequest(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, requestError("read range", p, err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, endInclusive))

	resp, err := c.do(req, "read range", p)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp.Body)

	length := endInclusive - start + 1
	switch resp.StatusCode {
	case http.StatusPartialContent:
		got, err := contentRangeStart(resp.Header.Get("Content-Range"))
		if err != nil || got != start {
			return nil, &TransportError{
				Op: "read range", Path: p, StatusCode: resp.StatusCode,
				Err: fmt.Errorf("%w: asked for offset %d, Content-Range %q", ErrRangeMismatch, start, resp.Header.Get("Content-Range")),
			}
		}
	case http.StatusOK:
		c.log().Debug("webdav server ignored range", "path", p)
		if _, err := io.CopyN(io.Discard, resp.Body, start); err != nil {
			if errors.Is(err, io.EOF) {
				return []byte{}, nil
			}
			return nil, requestError("read range", p, err)
		}
	default:
		return nil, statusError("read range", p, resp.StatusCode)
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, length))
	if err != nil {
		return nil, requestError("read range", p, err)
	}
	return buf, nil
}

// contentRangeStart returns the first byte position of a
// "bytes first-last/total" header.
func contentRangeStart(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	first, _, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return n, nil
}

// Open starts a GET of the whole resource at p. The caller must close the
// returned body.
func (c *Client) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, requestError("get", p, err)
	}
	resp, err := c.do(req, "get", p)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		drainClose(resp.Body)
		return nil, statusError("get", p, resp.StatusCode)
	}
	return &bodyReadCloser{body: resp.Body, op: "get", path: p}, nil
}

// ReadAll returns the whole resource at p.
func (c *Client) ReadAll(ctx context.Context, p string) ([]byte, error) {
	rc, err := c.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// DownloadTo copies the resource at p to the local file dest. The data is
// written to a temporary file in dest's directory and renamed into place,
// so dest is never left partially written.
func (c *Client) DownloadTo(ctx context.Context, p, dest string) (int64, error) {
	rc, err := c.Open(ctx, p)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("webdav: create download dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".docview-*")
	if err != nil {
		return 0, fmt.Errorf("webdav: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, rc)
	if err != nil {
		return n, err
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("webdav: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return n, fmt.Errorf("webdav: rename download: %w", err)
	}
	success = true
	c.log().Debug("webdav download complete", "path", p, "dest", dest, "bytes", n)
	return n, nil
}

// bodyReadCloser turns mid-body network failures into TransportErrors.
type bodyReadCloser struct {
	body io.ReadCloser
	op   string
	path string
}

func (b *bodyReadCloser) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, requestError(b.op, b.path, err)
	}
	return n, err
}

func (b *bodyReadCloser) Close() error {
	drainClose(b.body)
	return nil
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

// CloseIdleConnections closes pooled connections that are not in use.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}
