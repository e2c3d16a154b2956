package webdav

import (
	"net/url"
	"path"
	"strings"
)

// escapePath percent-encodes each segment of p on its own. A literal '+'
// is sent as %2B because many servers decode it as a space.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = strings.ReplaceAll(url.PathEscape(s), "+", "%2B")
	}
	return strings.Join(segs, "/")
}

// cleanPath normalizes a server-relative path to "/a/b" form.
func cleanPath(p string) string {
	return path.Clean("/" + p)
}

// resolve builds the request URL for the server-relative path p.
func (c *Client) resolve(p string) string {
	u := *c.base
	rel := cleanPath(p)
	u.Path = strings.TrimSuffix(c.base.Path, "/") + rel
	u.RawPath = strings.TrimSuffix(c.base.EscapedPath(), "/") + escapePath(rel)
	return u.String()
}

// relative maps a decoded href path back to a server-relative path, or
// reports false when it lies outside the base URL.
func (c *Client) relative(hrefPath string) (string, bool) {
	base := strings.TrimSuffix(c.base.Path, "/")
	if !strings.HasPrefix(hrefPath, base) {
		return "", false
	}
	rest := hrefPath[len(base):]
	if rest != "" && !strings.HasPrefix(rest, "/") {
		return "", false
	}
	return cleanPath(rest), true
}

// hrefPath decodes the path component of a multistatus href, which may be
// absolute ("http://host/a%20b") or server-absolute ("/a%20b").
func hrefPath(href string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return u.Path, nil
}
