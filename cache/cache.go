// Package cache defines the collaborator surfaces the content layer uses
// for caching: a store for decoded archive entries and a recency signal
// for files the layer has read.
//
// Keys are digests of an entry's identity (container, name, sizes and
// CRC-32), not of its content, so a lookup never needs the data first.
package cache

import (
	_ "crypto/sha256" // registers the digest algorithm
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Cache stores decoded entry content.
//
// Implementations handle their own size limits and eviction, and must be
// safe for concurrent use.
type Cache interface {
	// Get returns the content stored under key.
	Get(key digest.Digest) ([]byte, bool)

	// Put stores content under key.
	Put(key digest.Digest, content []byte) error
}

// Toucher is told when a local file has been used, so an external
// capacity manager can keep it from being evicted.
type Toucher interface {
	Touch(path string) error
}

// EntryKey identifies one archive entry. serverID is empty for local
// containers.
func EntryKey(serverID, containerPath, entryName string, localHeaderOffset, compressedSize, uncompressedSize uint64, crc uint32) digest.Digest {
	var b strings.Builder
	for _, part := range []string{
		serverID,
		containerPath,
		entryName,
		strconv.FormatUint(localHeaderOffset, 10),
		strconv.FormatUint(compressedSize, 10),
		strconv.FormatUint(uncompressedSize, 10),
		strconv.FormatUint(uint64(crc), 16),
	} {
		b.WriteString(part)
		b.WriteByte(0)
	}
	return digest.FromString(b.String())
}
