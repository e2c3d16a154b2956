package webdav

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

// maxMultistatusSize caps how much of a PROPFIND response is parsed.
const maxMultistatusSize = 32 << 20

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<D:propfind xmlns:D="DAV:"><D:prop>
<D:displayname/><D:resourcetype/><D:getcontentlength/><D:getlastmodified/><D:getcontenttype/><D:getetag/>
</D:prop></D:propfind>`

// Entry describes one resource returned by a PROPFIND.
type Entry struct {
	Name        string    // display name, or the decoded last path segment
	Path        string    // decoded path relative to the server root, "/a/b"
	IsDir       bool      // resource is a collection
	Size        int64     // zero when unknown
	ModTime     time.Time // zero when unknown
	ContentType string
	ETag        string
}

type multistatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	Responses []response `xml:"DAV: response"`
}

type response struct {
	Href      string     `xml:"DAV: href"`
	Propstats []propstat `xml:"DAV: propstat"`
}

type propstat struct {
	Prop   prop   `xml:"DAV: prop"`
	Status string `xml:"DAV: status"`
}

type prop struct {
	DisplayName   string       `xml:"DAV: displayname"`
	ResourceType  resourceType `xml:"DAV: resourcetype"`
	ContentLength string       `xml:"DAV: getcontentlength"`
	LastModified  string       `xml:"DAV: getlastmodified"`
	ContentType   string       `xml:"DAV: getcontenttype"`
	ETag          string       `xml:"DAV: getetag"`
}

type resourceType struct {
	Collection *struct{} `xml:"DAV: collection"`
}

func (c *Client) propfind(ctx context.Context, op, p, depth string) (*multistatus, error) {
	req, err := c.newRequest(ctx, "PROPFIND", p, strings.NewReader(propfindBody))
	if err != nil {
		return nil, requestError(op, p, err)
	}
	req.Header.Set("Depth", depth)
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.do(req, op, p)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusMultiStatus {
		return nil, statusError(op, p, resp.StatusCode)
	}
	ms, err := parseMultistatus(io.LimitReader(resp.Body, maxMultistatusSize))
	if err != nil {
		return nil, &TransportError{Op: op, Path: p, StatusCode: resp.StatusCode, Err: err}
	}
	return ms, nil
}

// parseMultistatus decodes a DAV: multistatus document. Elements are
// matched by namespace, not prefix. Any DOCTYPE directive aborts parsing.
func parseMultistatus(r io.Reader) (*multistatus, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("webdav: empty multistatus response")
			}
			return nil, fmt.Errorf("webdav: parse multistatus: %w", err)
		}
		switch t := tok.(type) {
		case xml.Directive:
			if isDoctype(t) {
				return nil, ErrDoctype
			}
		case xml.StartElement:
			var ms multistatus
			if err := dec.DecodeElement(&ms, &t); err != nil {
				return nil, fmt.Errorf("webdav: parse multistatus: %w", err)
			}
			return &ms, nil
		}
	}
}

func isDoctype(d xml.Directive) bool {
	s := bytes.TrimSpace(d)
	return len(s) >= 7 && strings.EqualFold(string(s[:7]), "DOCTYPE")
}

// entryFromResponse merges the successful propstats of r into an Entry.
// Responses whose href falls outside the base URL are dropped.
func (c *Client) entryFromResponse(r response) (Entry, bool) {
	hp, err := hrefPath(r.Href)
	if err != nil {
		c.log().Debug("webdav skipping bad href", "href", r.Href, "error", err)
		return Entry{}, false
	}
	rel, ok := c.relative(hp)
	if !ok {
		c.log().Debug("webdav skipping foreign href", "href", r.Href)
		return Entry{}, false
	}

	e := Entry{Path: rel}
	for _, ps := range r.Propstats {
		if !statusOK(ps.Status) {
			continue
		}
		pr := ps.Prop
		if pr.DisplayName != "" {
			e.Name = pr.DisplayName
		}
		if pr.ResourceType.Collection != nil {
			e.IsDir = true
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(pr.ContentLength), 10, 64); err == nil && n >= 0 {
			e.Size = n
		}
		if t, err := http.ParseTime(strings.TrimSpace(pr.LastModified)); err == nil {
			e.ModTime = t
		}
		if pr.ContentType != "" {
			e.ContentType = pr.ContentType
		}
		if pr.ETag != "" {
			e.ETag = pr.ETag
		}
	}
	if e.Name == "" && rel != "/" {
		e.Name = path.Base(rel)
	}
	return e, true
}

// statusOK accepts an empty status or any "HTTP/1.x 2xx ..." status line.
func statusOK(status string) bool {
	fields := strings.Fields(status)
	if len(fields) < 2 {
		return status == ""
	}
	code, err := strconv.Atoi(fields[1])
	return err == nil && code >= 200 && code < 300
}
