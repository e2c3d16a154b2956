// Package disk provides a disk-backed entry cache that also acts as the
// recency tracker for files the content layer places under its root, such
// as downloads into the cache directory.
//
// Recency is the file modification time: Get and Touch bump it, and Prune
// removes the oldest entries first until the cache fits a byte budget.
package disk

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/opencontainers/go-digest"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
)

// Cache implements cache.Cache and cache.Toucher on the local filesystem.
type Cache struct {
	dir            string
	shardPrefixLen int
	dirPerm        os.FileMode
	now            func() time.Time
}

// Option configures a disk cache.
type Option func(*Cache)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(c *Cache) {
		c.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for cache directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.dirPerm = mode
	}
}

// New creates a disk-backed cache rooted at dir.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	dir = filepath.Clean(dir)
	c := &Cache{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shardPrefixLen < 0 {
		return nil, errors.New("shard prefix length must be >= 0")
	}
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// Get returns the content stored under key and marks it recently used.
func (c *Cache) Get(key digest.Digest) ([]byte, bool) {
	path, err := c.path(key)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from a validated digest
	if err != nil {
		return nil, false
	}
	now := c.now()
	_ = os.Chtimes(path, now, now) //nolint:errcheck // recency is best effort
	return data, true
}

// Put stores content under key. Existing entries are left untouched.
func (c *Cache) Put(key digest.Digest, content []byte) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "cache-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		if _, statErr := os.Stat(path); statErr == nil {
			return nil
		}
		return err
	}
	return nil
}

// Touch marks the file at path as just used. Only files under the cache
// root are tracked; other paths are left alone, since their modification
// time belongs to whoever owns them.
func (c *Cache) Touch(path string) error {
	if !c.owns(path) {
		return nil
	}
	now := c.now()
	return os.Chtimes(path, now, now)
}

func (c *Cache) owns(path string) bool {
	root, err := filepath.Abs(c.dir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." {
		return false
	}
	return filepath.IsLocal(rel)
}

// Size returns the total bytes of all files under the cache root,
// including writes still in flight.
func (c *Cache) Size() (int64, error) {
	u, err := c.Usage()
	return u.Total(), err
}

// Usage reports the bytes under the cache root by kind.
func (c *Cache) Usage() (Usage, error) {
	files, err := c.usage()
	if err != nil {
		return Usage{}, err
	}
	return summarize(files), nil
}

// Prune deletes temp files abandoned by interrupted writes, then the least
// recently used entries and downloads, until at most maxBytes remain.
// The content layer never calls it; it is the capacity manager's lever.
func (c *Cache) Prune(maxBytes int64) (freed, remaining int64, err error) {
	return c.prune(maxBytes)
}

func (c *Cache) path(key digest.Digest) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	enc := key.Encoded()
	algo := string(key.Algorithm())
	if c.shardPrefixLen <= 0 {
		return filepath.Join(c.dir, algo, enc), nil
	}
	prefixLen := min(c.shardPrefixLen, len(enc))
	return filepath.Join(c.dir, algo, enc[:prefixLen], enc), nil
}
