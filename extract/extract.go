// Package extract unpacks local zip, rar and 7z archives into a directory.
//
// Every format follows the same contract: entries are written in archive
// order, parent directories are created as needed, and an entry whose name
// would resolve outside the destination aborts the whole extraction.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

var (
	// ErrPathTraversal is returned for an entry whose name is absolute or
	// escapes the destination directory.
	ErrPathTraversal = errors.New("extract: entry path escapes destination")

	// ErrUnknownFormat is returned for an unrecognized file extension.
	ErrUnknownFormat = errors.New("extract: unknown archive format")

	// ErrEntryTooLarge is returned when an entry exceeds the size limit.
	ErrEntryTooLarge = errors.New("extract: entry too large")
)

// Stats summarizes one extraction.
type Stats struct {
	Files int
	Dirs  int
	Bytes int64
}

// Format extracts one archive family.
type Format interface {
	// Name returns a short identifier such as "zip".
	Name() string
	// Extract writes every entry of the archive at src under dest.
	Extract(ctx context.Context, src, dest string) (Stats, error)
}

type config struct {
	logger       *slog.Logger
	maxEntrySize int64
}

func (c *config) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

// Option configures extraction.
type Option func(*config)

// WithLogger sets the logger for extraction progress.
// By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMaxEntrySize limits the size of each extracted file. Zero means
// no limit.
func WithMaxEntrySize(n int64) Option {
	return func(c *config) {
		c.maxEntrySize = n
	}
}

// FormatFor selects the format for path by its extension.
func FormatFor(path string, opts ...Option) (Format, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".cbz", ".epub":
		return &zipFormat{cfg: cfg}, nil
	case ".rar", ".cbr":
		return &rarFormat{cfg: cfg}, nil
	case ".7z", ".cb7":
		return &sevenZipFormat{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(path))
	}
}

// Extract unpacks the archive at src into dest, choosing the format from
// the file extension.
func Extract(ctx context.Context, src, dest string, opts ...Option) (Stats, error) {
	f, err := FormatFor(src, opts...)
	if err != nil {
		return Stats{}, err
	}
	return f.Extract(ctx, src, dest)
}
