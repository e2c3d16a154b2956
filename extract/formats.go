package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/zip"
	"github.com/nwaples/rardecode/v2"

	"github.com/meigma/docview/charset"
)

const flagUTF8 = 1 << 11

type zipFormat struct{ cfg *config }

func (*zipFormat) Name() string { return "zip" }

func (z *zipFormat) Extract(ctx context.Context, src, dest string) (Stats, error) {
	af, err := os.Open(src)
	if err != nil {
		return Stats{}, fmt.Errorf("extract: open zip: %w", err)
	}
	defer af.Close()
	info, err := af.Stat()
	if err != nil {
		return Stats{}, fmt.Errorf("extract: open zip: %w", err)
	}
	// A reader is still returned alongside an insecure-name error; names
	// are checked entry by entry below.
	zr, err := zip.NewReader(af, info.Size())
	if zr == nil {
		return Stats{}, fmt.Errorf("extract: open zip: %w", err)
	}

	s, err := newSink(dest, z.cfg)
	if err != nil {
		return Stats{}, err
	}
	defer s.Close()

	for _, f := range zr.File {
		name := charset.DecodeArchiveName([]byte(f.Name), f.Flags&flagUTF8 != 0)
		if err := z.entry(ctx, s, f, name); err != nil {
			return s.stats, err
		}
	}
	z.cfg.log().Info("zip extracted", "src", src, "files", s.stats.Files, "bytes", s.stats.Bytes)
	return s.stats, nil
}

func (z *zipFormat) entry(ctx context.Context, s *sink, f *zip.File, name string) error {
	mode := f.Mode()
	switch {
	case mode.IsDir():
		return s.dir(name)
	case !mode.IsRegular():
		// Names are still validated so a hostile link aborts like any other entry.
		if _, err := cleanEntryName(name); err != nil {
			return err
		}
		z.cfg.log().Debug("skipping non-regular entry", "path", name, "mode", mode)
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("extract: open entry %s: %w", name, err)
	}
	defer rc.Close()
	return s.file(ctx, name, mode, rc)
}

type rarFormat struct{ cfg *config }

func (*rarFormat) Name() string { return "rar" }

func (r *rarFormat) Extract(ctx context.Context, src, dest string) (Stats, error) {
	rr, err := rardecode.OpenReader(src)
	if err != nil {
		return Stats{}, fmt.Errorf("extract: open rar: %w", err)
	}
	defer rr.Close()

	s, err := newSink(dest, r.cfg)
	if err != nil {
		return Stats{}, err
	}
	defer s.Close()

	for {
		hdr, err := rr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return s.stats, fmt.Errorf("extract: read rar: %w", err)
		}
		if hdr.IsDir {
			err = s.dir(hdr.Name)
		} else {
			err = s.file(ctx, hdr.Name, hdr.Mode(), rr)
		}
		if err != nil {
			return s.stats, err
		}
	}
	r.cfg.log().Info("rar extracted", "src", src, "files", s.stats.Files, "bytes", s.stats.Bytes)
	return s.stats, nil
}

type sevenZipFormat struct{ cfg *config }

func (*sevenZipFormat) Name() string { return "7z" }

func (z *sevenZipFormat) Extract(ctx context.Context, src, dest string) (Stats, error) {
	zr, err := sevenzip.OpenReader(src)
	if err != nil {
		return Stats{}, fmt.Errorf("extract: open 7z: %w", err)
	}
	defer zr.Close()

	s, err := newSink(dest, z.cfg)
	if err != nil {
		return Stats{}, err
	}
	defer s.Close()

	for _, f := range zr.File {
		if err := z.entry(ctx, s, f); err != nil {
			return s.stats, err
		}
	}
	z.cfg.log().Info("7z extracted", "src", src, "files", s.stats.Files, "bytes", s.stats.Bytes)
	return s.stats, nil
}

func (z *sevenZipFormat) entry(ctx context.Context, s *sink, f *sevenzip.File) error {
	info := f.FileInfo()
	if info.IsDir() {
		return s.dir(f.Name)
	}
	if !info.Mode().IsRegular() {
		if _, err := cleanEntryName(f.Name); err != nil {
			return err
		}
		return nil
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("extract: open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	return s.file(ctx, f.Name, info.Mode(), rc)
}
