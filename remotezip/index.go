package remotezip

import (
	"context"
	"encoding/binary"
	"slices"
	"strings"

	"github.com/meigma/docview/charset"
	"github.com/meigma/docview/internal/pathutil"
	"github.com/meigma/docview/internal/sizing"
)

// ZIP record signatures and sizes.
const (
	sigEOCD        = 0x06054b50
	sigCentralDir  = 0x02014b50
	sigLocalHeader = 0x04034b50

	eocdLen        = 22
	centralDirLen  = 46
	localHeaderLen = 30

	// maxTailLen covers the largest comment (65535 bytes) plus the fixed
	// EOCD record, with one byte to spare.
	maxTailLen = 65558

	flagUTF8 = 1 << 11
)

// Index is the immutable entry list of one container.
type Index struct {
	entries []Entry
	byName  map[string]int
	size    int64
	comment string
}

// Entries returns a copy of the entries in central directory order.
func (ix *Index) Entries() []Entry {
	return slices.Clone(ix.entries)
}

// Lookup returns the entry with the given name. When a name occurs more
// than once the first record wins.
func (ix *Index) Lookup(name string) (Entry, bool) {
	i, ok := ix.byName[name]
	if !ok {
		return Entry{}, false
	}
	return ix.entries[i], true
}

// DirEntry is an immediate child of a directory inside the container.
type DirEntry struct {
	Name  string
	IsDir bool
}

// ReadDir lists the immediate children of dir, sorted by name. dir is a
// slash-separated path; "" and "/" name the root. Directories that only
// exist implicitly through deeper names are included.
func (ix *Index) ReadDir(dir string) []DirEntry {
	prefix := pathutil.DirPrefix(dir)
	seen := make(map[string]int)
	var out []DirEntry
	for _, e := range ix.entries {
		name, isDir, ok := pathutil.Child(e.Name, prefix)
		if !ok {
			continue
		}
		if i, dup := seen[name]; dup {
			out[i].IsDir = out[i].IsDir || isDir
			continue
		}
		seen[name] = len(out)
		out = append(out, DirEntry{Name: name, IsDir: isDir})
	}
	slices.SortFunc(out, func(a, b DirEntry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Size returns the container length the index was built against.
func (ix *Index) Size() int64 {
	return ix.size
}

// Comment returns the archive comment.
func (ix *Index) Comment() string {
	return ix.comment
}

// BuildIndex reads the entry list of the container behind src.
//
// It issues exactly two ranged reads: the last min(size, 65558) bytes to
// locate the end of central directory record, and the central directory
// itself. Parsing stops at the first record without a central directory
// signature and keeps whatever was parsed before it.
func BuildIndex(ctx context.Context, src Source) (*Index, error) {
	size, err := src.Size(ctx)
	if err != nil {
		return nil, err
	}
	if size < eocdLen {
		return nil, formatError("container of %d bytes is too small", size)
	}

	tailLen := min(size, maxTailLen)
	tail, err := src.ReadRange(ctx, size-tailLen, tailLen)
	if err != nil {
		return nil, err
	}
	pos := findEOCD(tail)
	if pos < 0 {
		return nil, formatError("end of central directory not found")
	}
	eocd := tail[pos:]
	cdSize := binary.LittleEndian.Uint32(eocd[12:])
	cdOffset := binary.LittleEndian.Uint32(eocd[16:])
	commentLen := int(binary.LittleEndian.Uint16(eocd[20:]))
	comment := eocd[eocdLen:]
	if len(comment) > commentLen {
		comment = comment[:commentLen]
	}

	if !sizing.Within(uint64(cdOffset), uint64(cdSize), size) {
		return nil, formatError("central directory %d+%d outside container of %d bytes", cdOffset, cdSize, size)
	}

	cd, err := src.ReadRange(ctx, int64(cdOffset), int64(cdSize))
	if err != nil {
		return nil, err
	}

	entries, err := parseCentralDirectory(cd, size)
	if err != nil {
		return nil, err
	}

	ix := &Index{
		entries: entries,
		byName:  make(map[string]int, len(entries)),
		size:    size,
		comment: charset.DecodeArchiveName(comment, false),
	}
	for i, e := range entries {
		if _, dup := ix.byName[e.Name]; !dup {
			ix.byName[e.Name] = i
		}
	}
	return ix, nil
}

// findEOCD scans backward for the end of central directory signature and
// returns its position in buf, or -1.
func findEOCD(buf []byte) int {
	for i := len(buf) - eocdLen; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:]) == sigEOCD {
			return i
		}
	}
	return -1
}

// parseCentralDirectory walks consecutive central directory records.
func parseCentralDirectory(cd []byte, size int64) ([]Entry, error) {
	var entries []Entry
	for p := 0; p+centralDirLen <= len(cd); {
		rec := cd[p:]
		if binary.LittleEndian.Uint32(rec) != sigCentralDir {
			break
		}
		flags := binary.LittleEndian.Uint16(rec[8:])
		method := binary.LittleEndian.Uint16(rec[10:])
		crc := binary.LittleEndian.Uint32(rec[16:])
		csize := binary.LittleEndian.Uint32(rec[20:])
		usize := binary.LittleEndian.Uint32(rec[24:])
		nameLen := int(binary.LittleEndian.Uint16(rec[28:]))
		extraLen := int(binary.LittleEndian.Uint16(rec[30:]))
		commentLen := int(binary.LittleEndian.Uint16(rec[32:]))
		offset := binary.LittleEndian.Uint32(rec[42:])

		next := centralDirLen + nameLen + extraLen + commentLen
		if next > len(rec) {
			break
		}

		e := Entry{
			Name:              charset.DecodeArchiveName(rec[centralDirLen:centralDirLen+nameLen], flags&flagUTF8 != 0),
			LocalHeaderOffset: uint64(offset),
			CompressedSize:    uint64(csize),
			UncompressedSize:  uint64(usize),
			Method:            Method(method),
			CRC32:             crc,
			Flags:             flags,
		}
		if !sizing.Within(e.LocalHeaderOffset, localHeaderLen, size) {
			return nil, formatError("entry %q: local header offset %d outside container of %d bytes", e.Name, offset, size)
		}
		entries = append(entries, e)
		p += next
	}
	return entries, nil
}
