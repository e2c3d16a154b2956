package docview

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/meigma/docview/cache"
	"github.com/meigma/docview/charset"
	"github.com/meigma/docview/extract"
	"github.com/meigma/docview/internal/keyed"
	"github.com/meigma/docview/remotezip"
	"github.com/meigma/docview/textindex"
	"github.com/meigma/docview/webdav"
)

// Client provides read access to documents on registered WebDAV servers
// and on local disk.
//
// Client is safe for concurrent use. It owns three caches: one WebDAV
// client per server, one central-directory index per container, and one
// line index per text file.
type Client struct {
	servers map[string]string
	creds   CredentialStore

	contentCache cache.Cache
	toucher      cache.Toucher
	logger       *slog.Logger

	webdavOpts     []webdav.Option
	readerOpts     []remotezip.Option
	extractOpts    []extract.Option
	indexCacheSize int
	textCacheSize  int
	maxPreviews    int64

	clients  *keyed.Cache[*webdav.Client]
	archives *keyed.Cache[*archive]
	texts    *keyed.Cache[*textindex.Index]
	previews *semaphore.Weighted
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		servers:        make(map[string]string),
		indexCacheSize: DefaultIndexCacheSize,
		textCacheSize:  DefaultTextCacheSize,
		maxPreviews:    DefaultMaxConcurrentPreviews,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.clients = keyed.New[*webdav.Client](len(c.servers) + 1)
	c.archives = keyed.New[*archive](c.indexCacheSize)
	c.texts = keyed.New[*textindex.Index](c.textCacheSize)
	c.previews = semaphore.NewWeighted(c.maxPreviews)
	return c, nil
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Servers returns the registered server IDs.
func (c *Client) Servers() []string {
	ids := make([]string, 0, len(c.servers))
	for id := range c.servers {
		ids = append(ids, id)
	}
	return ids
}

// server returns the WebDAV client for serverID, creating it on first use.
func (c *Client) server(ctx context.Context, serverID string) (*webdav.Client, error) {
	baseURL, ok := c.servers[serverID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownServer, serverID)
	}
	return c.clients.GetOrCreate(ctx, serverID, func(context.Context) (*webdav.Client, error) {
		opts := append([]webdav.Option{}, c.webdavOpts...)
		if c.logger != nil {
			opts = append(opts, webdav.WithLogger(c.logger.With("server", serverID)))
		}
		if c.creds != nil {
			user, err := c.creds.Username(serverID)
			if err != nil {
				return nil, fmt.Errorf("credentials for %q: %w", serverID, err)
			}
			if user != "" {
				pass, err := c.creds.Password(serverID)
				if err != nil {
					return nil, fmt.Errorf("credentials for %q: %w", serverID, err)
				}
				opts = append(opts, webdav.WithBasicAuth(user, pass))
			}
		}
		return webdav.New(baseURL, opts...)
	})
}

// List returns the children of the collection at path on serverID.
func (c *Client) List(ctx context.Context, serverID, path string) ([]webdav.Entry, error) {
	wc, err := c.server(ctx, serverID)
	if err != nil {
		return nil, err
	}
	return wc.List(ctx, path)
}

// Size returns the length of the resource at path, or 0 when the server
// does not report one.
func (c *Client) Size(ctx context.Context, serverID, path string) (int64, error) {
	wc, err := c.server(ctx, serverID)
	if err != nil {
		return 0, err
	}
	return wc.Size(ctx, path)
}

// CheckConnection reports whether serverID answers an authenticated probe.
func (c *Client) CheckConnection(ctx context.Context, serverID string) bool {
	wc, err := c.server(ctx, serverID)
	if err != nil {
		c.log().Debug("connection check skipped", "server", serverID, "error", err)
		return false
	}
	return wc.CheckConnection(ctx)
}

// Download copies the resource at path to the local file dest and
// returns the number of bytes written.
func (c *Client) Download(ctx context.Context, serverID, path, dest string) (int64, error) {
	wc, err := c.server(ctx, serverID)
	if err != nil {
		return 0, err
	}
	n, err := wc.DownloadTo(ctx, path, dest)
	if err != nil {
		return 0, err
	}
	c.touch(dest)
	return n, nil
}

// DetectCharset guesses the encoding of b.
func (c *Client) DetectCharset(b []byte) charset.Charset {
	return charset.Detect(b)
}

// Extract unpacks the local archive src into dest. The format is chosen
// from the file extension.
func (c *Client) Extract(ctx context.Context, src, dest string) (extract.Stats, error) {
	opts := append([]extract.Option{}, c.extractOpts...)
	if c.logger != nil {
		opts = append(opts, extract.WithLogger(c.logger))
	}
	stats, err := extract.Extract(ctx, src, dest, opts...)
	if err != nil {
		return stats, err
	}
	c.touch(src)
	return stats, nil
}

// Close releases idle connections held by the server clients.
func (c *Client) Close() error {
	for _, wc := range c.clients.Values() {
		wc.CloseIdleConnections()
	}
	return nil
}

func (c *Client) touch(path string) {
	if c.toucher == nil {
		return
	}
	if err := c.toucher.Touch(path); err != nil {
		c.log().Debug("touch failed", "path", path, "error", err)
	}
}
