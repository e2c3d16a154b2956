package docview

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/meigma/docview/textindex"
)

// IndexFile scans the text file at path for line starts and registers the
// result for ReadLines. Indexing a path again replaces the earlier index,
// which is how a caller switches to a manually chosen charset.
func (c *Client) IndexFile(ctx context.Context, path string, opts ...textindex.Option) (*textindex.Index, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if c.logger != nil {
		opts = append([]textindex.Option{textindex.WithLogger(c.logger)}, opts...)
	}
	ix, err := textindex.Build(ctx, abs, opts...)
	if err != nil {
		return nil, err
	}
	c.texts.Add(abs, ix)
	c.touch(abs)
	return ix, nil
}

// ReadLines returns count lines starting at the 1-based line start of a
// file previously passed to IndexFile. A range past the end yields "".
func (c *Client) ReadLines(path string, start, count int) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	ix, ok := c.texts.Get(abs)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotIndexed, path)
	}
	return ix.ReadLines(start, count)
}

// TextIndex returns the registered index for path, if any.
func (c *Client) TextIndex(path string) (*textindex.Index, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	return c.texts.Get(abs)
}
