package extract

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// cleanEntryName converts an archive entry name to a clean slash-separated
// path relative to the destination. It returns "" for names that denote
// the destination itself.
func cleanEntryName(name string) (string, error) {
	n := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(n, "/") || filepath.VolumeName(n) != "" || hasDriveLetter(n) {
		return "", &fs.PathError{Op: "extract", Path: name, Err: ErrPathTraversal}
	}
	n = path.Clean(n)
	if n == ".." || strings.HasPrefix(n, "../") {
		return "", &fs.PathError{Op: "extract", Path: name, Err: ErrPathTraversal}
	}
	if n == "." {
		return "", nil
	}
	return n, nil
}

func hasDriveLetter(n string) bool {
	return len(n) >= 2 && n[1] == ':' && ((n[0] >= 'a' && n[0] <= 'z') || (n[0] >= 'A' && n[0] <= 'Z'))
}

// SafeJoin resolves the archive entry name under dest. It fails with an
// error matching ErrPathTraversal when name is absolute or would resolve
// outside dest.
func SafeJoin(dest, name string) (string, error) {
	rel, err := cleanEntryName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dest, filepath.FromSlash(rel)), nil
}
