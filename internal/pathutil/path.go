// Package pathutil splits slash-separated archive entry names into
// directory levels.
package pathutil

import "strings"

// Clean trims leading and trailing slashes. The archive root is "".
func Clean(dir string) string {
	return strings.Trim(dir, "/")
}

// DirPrefix returns the prefix every descendant of dir starts with.
// The root "" matches all names.
func DirPrefix(dir string) string {
	dir = Clean(dir)
	if dir == "" {
		return ""
	}
	return dir + "/"
}

// Child returns the immediate child of prefix that name lies under, and
// whether that child is a directory. ok is false when name is not a
// strict descendant of prefix.
func Child(name, prefix string) (child string, isDir, ok bool) {
	rel, found := strings.CutPrefix(name, prefix)
	if !found || rel == "" {
		return "", false, false
	}
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i], true, true
	}
	return rel, false, true
}
