package cache

import (
	"bytes"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/opencontainers/go-digest"
)

// DefaultMemoryEntries is the capacity of a Memory cache created with a
// non-positive size.
const DefaultMemoryEntries = 256

// Memory is an in-process Cache that evicts the least recently used
// entries beyond a fixed count.
type Memory struct {
	entries *lru.Cache[digest.Digest, []byte]
}

// NewMemory creates a Memory cache holding up to maxEntries entries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	// New only fails for a non-positive size.
	entries, _ := lru.New[digest.Digest, []byte](maxEntries)
	return &Memory{entries: entries}
}

// Get returns a copy of the content stored under key.
func (m *Memory) Get(key digest.Digest) ([]byte, bool) {
	content, ok := m.entries.Get(key)
	if !ok {
		return nil, false
	}
	return bytes.Clone(content), true
}

// Put stores a copy of content under key.
func (m *Memory) Put(key digest.Digest, content []byte) error {
	m.entries.Add(key, bytes.Clone(content))
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	return m.entries.Len()
}
