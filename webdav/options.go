package webdav

import (
	"log/slog"
	"net/http"
	"time"
)

// Default per-operation timeouts.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
)

// Timeouts bounds the phases of every request.
type Timeouts struct {
	Connect time.Duration // dialing and TLS handshake
	Read    time.Duration // max idle time between reads
	Write   time.Duration // max idle time between writes
}

// DefaultTimeouts returns 30s connect, 60s read and 60s write.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect: DefaultConnectTimeout,
		Read:    DefaultReadTimeout,
		Write:   DefaultWriteTimeout,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth sets the credentials sent with every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient replaces the HTTP client. The client's own transport and
// timeouts are used as is; WithTimeouts has no effect.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeouts overrides the connect, read and write timeouts.
// Zero fields keep their defaults.
func WithTimeouts(connect, read, write time.Duration) Option {
	return func(c *Client) {
		if connect > 0 {
			c.timeouts.Connect = connect
		}
		if read > 0 {
			c.timeouts.Read = read
		}
		if write > 0 {
			c.timeouts.Write = write
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger for request tracing.
// By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
