package docview

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/meigma/docview/cache"
	"github.com/meigma/docview/extract"
	"github.com/meigma/docview/remotezip"
	"github.com/meigma/docview/webdav"
)

// Option configures a Client.
type Option func(*Client) error

// Defaults for the client caches and the preview bound.
const (
	DefaultIndexCacheSize        = 64
	DefaultTextCacheSize         = 16
	DefaultMaxConcurrentPreviews = 2
)

// --- Server Options ---

// WithServer registers a WebDAV server under id. baseURL must be an
// absolute http or https URL.
func WithServer(id, baseURL string) Option {
	return func(c *Client) error {
		if id == "" {
			return errors.New("server id is empty")
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("server %q: %w", id, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("server %q: unsupported scheme %q", id, u.Scheme)
		}
		if _, dup := c.servers[id]; dup {
			return fmt.Errorf("server %q registered twice", id)
		}
		c.servers[id] = baseURL
		return nil
	}
}

// WithCredentials sets the store consulted for Basic auth when a server
// client is first created.
func WithCredentials(store CredentialStore) Option {
	return func(c *Client) error {
		c.creds = store
		return nil
	}
}

// WithWebDAVOptions passes extra options to every server client, such as
// timeouts or a custom HTTP client.
func WithWebDAVOptions(opts ...webdav.Option) Option {
	return func(c *Client) error {
		c.webdavOpts = append(c.webdavOpts, opts...)
		return nil
	}
}

// --- Cache Options ---

// WithContentCache stores decoded archive entries in cc.
func WithContentCache(cc cache.Cache) Option {
	return func(c *Client) error {
		c.contentCache = cc
		return nil
	}
}

// WithToucher sets the collaborator told about every local file the
// client reads or writes.
func WithToucher(t cache.Toucher) Option {
	return func(c *Client) error {
		c.toucher = t
		return nil
	}
}

// WithIndexCacheSize sets how many container indexes stay resident.
func WithIndexCacheSize(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return errors.New("index cache size must be positive")
		}
		c.indexCacheSize = n
		return nil
	}
}

// WithTextCacheSize sets how many text line indexes stay resident.
func WithTextCacheSize(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return errors.New("text cache size must be positive")
		}
		c.textCacheSize = n
		return nil
	}
}

// --- Read Options ---

// WithMaxConcurrentPreviews bounds how many FirstEntry calls decode at once.
func WithMaxConcurrentPreviews(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return errors.New("max concurrent previews must be positive")
		}
		c.maxPreviews = int64(n)
		return nil
	}
}

// WithMaxEntrySize limits the decoded size of archive entries, both for
// ranged reads and for extraction.
func WithMaxEntrySize(limit uint64) Option {
	return func(c *Client) error {
		if limit == 0 {
			return errors.New("max entry size must be positive")
		}
		c.readerOpts = append(c.readerOpts, remotezip.WithMaxEntrySize(limit))
		c.extractOpts = append(c.extractOpts, extract.WithMaxEntrySize(int64(min(limit, uint64(1<<63-1)))))
		return nil
	}
}

// WithLogger sets the logger shared by every component.
// By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}
