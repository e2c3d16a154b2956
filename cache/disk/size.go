package disk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
)

// tempPattern names the files Put writes before renaming them into place.
const tempPattern = "cache-*"

// abandonedAfter is how old a temp file must be before Prune treats it as
// left behind by an interrupted Put.
const abandonedAfter = time.Hour

type fileKind int

const (
	kindEntry    fileKind = iota // <algo>/<shard>/<encoded> written by Put
	kindDownload                 // anything else placed under the root
	kindTemp                     // in-flight or abandoned Put
)

type cachedFile struct {
	path    string
	size    int64
	modTime time.Time
	kind    fileKind
}

// usage lists every regular file under the cache root. A missing root has
// no files.
func (c *Cache) usage() ([]cachedFile, error) {
	var files []cachedFile
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, cachedFile{
			path:    path,
			size:    info.Size(),
			modTime: info.ModTime(),
			kind:    c.classify(path),
		})
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return files, err
}

func (c *Cache) classify(path string) fileKind {
	name := filepath.Base(path)
	if ok, _ := filepath.Match(tempPattern, name); ok {
		return kindTemp
	}
	rel, err := filepath.Rel(c.dir, path)
	if err != nil {
		return kindDownload
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return kindDownload
	}
	key := digest.NewDigestFromEncoded(digest.Algorithm(parts[0]), parts[len(parts)-1])
	if want, err := c.path(key); err != nil || want != path {
		return kindDownload
	}
	return kindEntry
}

// Usage breaks the bytes under the cache root down by what wrote them.
type Usage struct {
	Entries       int
	EntryBytes    int64
	Downloads     int
	DownloadBytes int64
	TempBytes     int64
}

// Total returns the bytes of every file counted in u.
func (u Usage) Total() int64 {
	return u.EntryBytes + u.DownloadBytes + u.TempBytes
}

func summarize(files []cachedFile) Usage {
	var u Usage
	for _, f := range files {
		switch f.kind {
		case kindEntry:
			u.Entries++
			u.EntryBytes += f.size
		case kindDownload:
			u.Downloads++
			u.DownloadBytes += f.size
		case kindTemp:
			u.TempBytes += f.size
		}
	}
	return u
}

// prune removes abandoned temp files, then entries and downloads in order
// of last use, until at most targetBytes remain. In-flight temp files count
// toward the total but are never removed.
func (c *Cache) prune(targetBytes int64) (freed, remaining int64, err error) {
	targetBytes = max(targetBytes, 0)

	files, err := c.usage()
	if err != nil {
		return 0, 0, err
	}
	remaining = summarize(files).Total()

	remove := func(f cachedFile) error {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		remaining -= f.size
		freed += f.size
		c.removeEmptyParents(filepath.Dir(f.path))
		return nil
	}

	cutoff := c.now().Add(-abandonedAfter)
	var candidates []cachedFile
	for _, f := range files {
		switch {
		case f.kind != kindTemp:
			candidates = append(candidates, f)
		case f.modTime.Before(cutoff):
			if err := remove(f); err != nil {
				return freed, remaining, err
			}
		}
	}
	if remaining <= targetBytes {
		return freed, remaining, nil
	}

	slices.SortFunc(candidates, func(a, b cachedFile) int {
		if n := a.modTime.Compare(b.modTime); n != 0 {
			return n
		}
		return strings.Compare(a.path, b.path)
	})
	for _, f := range candidates {
		if remaining <= targetBytes {
			break
		}
		if err := remove(f); err != nil {
			return freed, remaining, err
		}
	}
	return freed, remaining, nil
}

// removeEmptyParents drops shard and algorithm directories left empty by
// pruning. It stops at the cache root or the first non-empty directory.
func (c *Cache) removeEmptyParents(dir string) {
	for dir != c.dir && strings.HasPrefix(dir, c.dir) {
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
