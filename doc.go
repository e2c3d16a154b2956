// Package docview provides random access to documents held on WebDAV
// servers or on local disk.
//
// A [Client] lists remote directories, reads single entries out of ZIP
// containers with HTTP range requests, indexes large text files by line,
// detects legacy East Asian charsets, and extracts local zip, rar and 7z
// archives. Nothing is materialized whole unless the caller asks for it.
//
// # Quick Start
//
//	c, err := docview.New(
//	    docview.WithServer("nas", "https://nas.local/dav"),
//	    docview.WithCredentials(docview.StaticCredentials{
//	        "nas": {Username: "reader", Password: secret},
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	page, err := c.ReadEntry(ctx, "nas", "/comics/vol1.cbz", "001.jpg")
//
// # Containers
//
// A remote container is identified by server ID and path, a local one by
// its filesystem path. The central directory of each container is fetched
// once and kept in a bounded cache; concurrent first reads of the same
// container share one fetch. Use an empty server ID for local containers.
//
// # Caching
//
// Decoded entries can be stored in any [cache.Cache], for example the
// disk cache in package cache/disk. A [cache.Toucher] is told about every
// local file the client reads or downloads so an external capacity
// manager can keep recently used files. The disk cache only records use of
// files under its own root, so downloads into the cache directory are
// tracked while a user's own archives keep their modification times.
//
// Local containers stay indexed for as long as the file keeps its size and
// identity; a same-sized rewrite is caught when an entry fails its
// checksum, and the container is indexed again.
//
// # Text
//
// [Client.IndexFile] scans a file once for line starts and
// [Client.ReadLines] then serves any line range with a single seek.
package docview
