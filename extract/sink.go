package extract

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
)

// sink writes entries beneath dest through an os.Root, so no write can
// leave the destination even via symlinks planted by earlier entries.
type sink struct {
	root  *os.Root
	cfg   *config
	stats Stats
}

func newSink(dest string, cfg *config) (*sink, error) {
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return nil, fmt.Errorf("extract: create destination: %w", err)
	}
	root, err := os.OpenRoot(dest)
	if err != nil {
		return nil, fmt.Errorf("extract: open destination: %w", err)
	}
	return &sink{root: root, cfg: cfg}, nil
}

func (s *sink) Close() error {
	return s.root.Close()
}

func (s *sink) dir(name string) error {
	rel, err := cleanEntryName(name)
	if err != nil {
		return err
	}
	if rel == "" {
		return nil
	}
	if err := s.root.MkdirAll(rel, 0o750); err != nil {
		return fmt.Errorf("extract: mkdir %s: %w", rel, err)
	}
	s.stats.Dirs++
	return nil
}

func (s *sink) file(ctx context.Context, name string, mode fs.FileMode, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := cleanEntryName(name)
	if err != nil {
		return err
	}
	if rel == "" {
		return nil
	}
	if dir := path.Dir(rel); dir != "." {
		if err := s.root.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("extract: mkdir %s: %w", dir, err)
		}
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	f, err := s.root.OpenFile(rel, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("extract: create %s: %w", rel, err)
	}

	src := r
	if s.cfg.maxEntrySize > 0 {
		src = io.LimitReader(r, s.cfg.maxEntrySize+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.cfg.maxEntrySize > 0 && n > s.cfg.maxEntrySize {
		err = fmt.Errorf("%w: %s", ErrEntryTooLarge, rel)
	}
	if err != nil {
		_ = s.root.Remove(rel)
		return fmt.Errorf("extract: write %s: %w", rel, err)
	}

	s.stats.Files++
	s.stats.Bytes += n
	s.cfg.log().Debug("extracted entry", "path", rel, "bytes", n)
	return nil
}
