package webdav

import (
	"context"
	"sync"
)

// Resource is a single remote file addressed by byte ranges. It satisfies
// remotezip.Source.
type Resource struct {
	client *Client
	path   string

	mu    sync.Mutex
	size  int64
	known bool
}

// Resource returns a range-addressable view of the file at p.
func (c *Client) Resource(p string) *Resource {
	return &Resource{client: c, path: cleanPath(p)}
}

// Path returns the server-relative path of the resource.
func (r *Resource) Path() string {
	return r.path
}

// Size returns the resource length. It is fetched once and remembered;
// failures are not remembered.
func (r *Resource) Size(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.known {
		return r.size, nil
	}
	n, err := r.client.Size(ctx, r.path)
	if err != nil {
		return 0, err
	}
	r.size, r.known = n, true
	return n, nil
}

// ReadRange returns length bytes starting at off.
func (r *Resource) ReadRange(ctx context.Context, off, length int64) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	if length < 0 {
		return nil, ErrInvalidRange
	}
	return r.client.ReadRange(ctx, r.path, off, off+length-1)
}
