package docview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meigma/docview/cache"
	dvhttp "github.com/meigma/docview/http"
	"github.com/meigma/docview/remotezip"
)

// archive is one indexed container together with the source its entries
// are read from. Local containers reopen the file per read so that no
// descriptor outlives an eviction.
type archive struct {
	serverID string
	path     string
	index    *remotezip.Index
	remote   remotezip.Source

	// file is the local file as it was when the index was built.
	file os.FileInfo
}

// staleFor reports whether a local index no longer describes the file
// behind info. Modification times are not compared: touching a file to
// mark it as used must not invalidate its index.
func (a *archive) staleFor(info os.FileInfo) bool {
	if a.file == nil {
		return false
	}
	return a.file.Size() != info.Size() || !os.SameFile(a.file, info)
}

// containerKey identifies a container in the index cache.
func containerKey(serverID, path string) string {
	return serverID + "\x00" + path
}

// open returns the indexed container, building the index on first use.
// An empty serverID names a local file, or a plain HTTP resource when
// path is an http or https URL.
func (c *Client) open(ctx context.Context, serverID, path string) (*archive, error) {
	if serverID == "" {
		if isURL(path) {
			return c.openURL(ctx, path)
		}
		return c.openLocal(ctx, path)
	}
	wc, err := c.server(ctx, serverID)
	if err != nil {
		return nil, err
	}
	return c.archives.GetOrCreate(ctx, containerKey(serverID, path), func(ctx context.Context) (*archive, error) {
		src := wc.Resource(path)
		ix, err := remotezip.BuildIndex(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", path, err)
		}
		c.log().Debug("indexed remote container", "server", serverID, "path", path, "entries", ix.Len())
		return &archive{serverID: serverID, path: path, index: ix, remote: src}, nil
	})
}

func isURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

func (c *Client) openURL(ctx context.Context, rawURL string) (*archive, error) {
	return c.archives.GetOrCreate(ctx, containerKey("", rawURL), func(ctx context.Context) (*archive, error) {
		var opts []dvhttp.Option
		if c.logger != nil {
			opts = append(opts, dvhttp.WithLogger(c.logger))
		}
		src, err := dvhttp.NewSource(ctx, rawURL, opts...)
		if err != nil {
			return nil, err
		}
		ix, err := remotezip.BuildIndex(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", rawURL, err)
		}
		c.log().Debug("indexed http container", "url", rawURL, "entries", ix.Len())
		return &archive{path: rawURL, index: ix, remote: src}, nil
	})
}

func (c *Client) openLocal(ctx context.Context, path string) (*archive, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	key := containerKey("", abs)
	build := func(ctx context.Context) (*archive, error) {
		src, err := remotezip.OpenFile(abs)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		ix, err := remotezip.BuildIndex(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", abs, err)
		}
		c.log().Debug("indexed local container", "path", abs, "entries", ix.Len())
		return &archive{path: abs, index: ix, file: info}, nil
	}
	a, err := c.archives.GetOrCreate(ctx, key, build)
	if err != nil || !a.staleFor(info) {
		return a, err
	}
	c.log().Debug("local container changed, reindexing", "path", abs)
	c.archives.Remove(key)
	return c.archives.GetOrCreate(ctx, key, build)
}

// read decodes one entry, consulting the content cache first.
func (c *Client) read(ctx context.Context, a *archive, e remotezip.Entry) ([]byte, error) {
	key := cache.EntryKey(a.serverID, a.path, e.Name, e.LocalHeaderOffset, e.CompressedSize, e.UncompressedSize, e.CRC32)
	if c.contentCache != nil {
		if data, ok := c.contentCache.Get(key); ok {
			return data, nil
		}
	}

	var data []byte
	if a.remote != nil {
		r := remotezip.NewReader(a.remote, c.readerOptions()...)
		var err error
		if data, err = r.ReadEntry(ctx, e); err != nil {
			return nil, err
		}
	} else {
		src, err := remotezip.OpenFile(a.path)
		if err != nil {
			return nil, err
		}
		data, err = remotezip.NewReader(src, c.readerOptions()...).ReadEntry(ctx, e)
		_ = src.Close()
		if err != nil {
			return nil, err
		}
		c.touch(a.path)
	}

	if c.contentCache != nil {
		if err := c.contentCache.Put(key, data); err != nil {
			c.log().Warn("content cache put failed", "entry", e.Name, "error", err)
		}
	}
	return data, nil
}

func (c *Client) readerOptions() []remotezip.Option {
	if c.logger == nil {
		return c.readerOpts
	}
	return append(append([]remotezip.Option{}, c.readerOpts...), remotezip.WithLogger(c.logger))
}

// Entries returns the entries of the ZIP container at path, in central
// directory order. An empty serverID names a local file or an HTTP URL.
func (c *Client) Entries(ctx context.Context, serverID, path string) ([]remotezip.Entry, error) {
	a, err := c.open(ctx, serverID, path)
	if err != nil {
		return nil, err
	}
	return a.index.Entries(), nil
}

// ReadEntry returns the decoded content of entryName inside the ZIP
// container at path. Only the container's tail, its central directory and
// the entry itself are transferred. An empty serverID names a local file or
// an HTTP URL.
func (c *Client) ReadEntry(ctx context.Context, serverID, path, entryName string) ([]byte, error) {
	a, err := c.open(ctx, serverID, path)
	if err != nil {
		return nil, err
	}
	data, err := c.readNamed(ctx, a, entryName)
	if err == nil || a.file == nil || !rewrittenInPlace(err) {
		return data, err
	}
	// A same-sized rewrite keeps the file identity; the entry bytes no
	// longer matching the index is the only sign of it.
	c.log().Debug("local container rewritten, reindexing", "path", a.path, "error", err)
	c.archives.Remove(containerKey("", a.path))
	if a, err = c.open(ctx, serverID, path); err != nil {
		return nil, err
	}
	return c.readNamed(ctx, a, entryName)
}

func (c *Client) readNamed(ctx context.Context, a *archive, entryName string) ([]byte, error) {
	e, ok := a.index.Lookup(entryName)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, entryName, a.path)
	}
	return c.read(ctx, a, e)
}

func rewrittenInPlace(err error) bool {
	return errors.Is(err, remotezip.ErrChecksum) || errors.Is(err, remotezip.ErrArchiveFormat)
}

// ReadLocalEntry is ReadEntry for a container on local disk.
func (c *Client) ReadLocalEntry(ctx context.Context, path, entryName string) ([]byte, error) {
	return c.ReadEntry(ctx, "", path, entryName)
}

// FirstEntry returns the first file entry accepted by match, in central
// directory order, together with its content. A nil match accepts every
// file. At most WithMaxConcurrentPreviews calls decode at the same time.
func (c *Client) FirstEntry(ctx context.Context, serverID, path string, match func(remotezip.Entry) bool) (remotezip.Entry, []byte, error) {
	if err := c.previews.Acquire(ctx, 1); err != nil {
		return remotezip.Entry{}, nil, err
	}
	defer c.previews.Release(1)

	a, err := c.open(ctx, serverID, path)
	if err != nil {
		return remotezip.Entry{}, nil, err
	}
	for _, e := range a.index.Entries() {
		if e.IsDir() || (match != nil && !match(e)) {
			continue
		}
		data, err := c.read(ctx, a, e)
		if err != nil {
			return remotezip.Entry{}, nil, err
		}
		return e, data, nil
	}
	return remotezip.Entry{}, nil, fmt.Errorf("%w: no matching entry in %s", ErrEntryNotFound, path)
}

// Forget drops the cached index of a container so the next read fetches
// its central directory again.
func (c *Client) Forget(serverID, path string) {
	if serverID == "" && !isURL(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	c.archives.Remove(containerKey(serverID, path))
}
