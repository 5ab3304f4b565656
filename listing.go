package webserv

import (
	"fmt"
	"html"
	"os"
	"path"
	"sort"
	"time"
)

// renderDirectoryListing generates the UTF-8 HTML autoindex page for dir:
// entries sorted by name ascending, showing name, size (files only),
// last-modified, a "/" suffix for subdirectories, and a ".." link unless
// dir is the document root. urlPath is the request path the listing is
// served under (used to build entry hrefs).
func renderDirectoryListing(fs Fs, dir, urlPath string, isRoot bool) ([]byte, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type row struct {
		name  string
		isDir bool
		size  int64
		mtime time.Time
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		rows = append(rows, row{name: e.Name(), isDir: e.IsDir(), size: info.Size(), mtime: info.ModTime()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	var buf []byte
	buf = append(buf, fmt.Sprintf("<!DOCTYPE html>\n<html><head><title>Index of %s</title></head>\n<body>\n<h1>Index of %s</h1>\n<hr><pre>\n",
		html.EscapeString(urlPath), html.EscapeString(urlPath))...)

	if !isRoot {
		buf = append(buf, fmt.Sprintf("<a href=\"%s\">../</a>\n", path.Join(urlPath, ".."))...)
	}

	for _, r := range rows {
		name := r.name
		href := name
		display := name
		if r.isDir {
			href += "/"
			display += "/"
		}
		sizeCol := "-"
		if !r.isDir {
			sizeCol = fmt.Sprintf("%d", r.size)
		}
		buf = append(buf, fmt.Sprintf("<a href=\"%s\">%s</a>%*s%s %20s\n",
			html.EscapeString(href), html.EscapeString(display), max(1, 50-len(display)), "",
			r.mtime.UTC().Format("02-Jan-2006 15:04"), sizeCol)...)
	}

	buf = append(buf, []byte("</pre><hr>\n</body></html>\n")...)
	return buf, nil
}

// GenerateDirectoryListing returns the (possibly cached) autoindex HTML for
// dir, regenerating it through cache when absent or invalidated. Freshly
// generated pages are minified like every other server-generated HTML
// body; files served verbatim from disk never are.
func GenerateDirectoryListing(fs Fs, cache *listingCache, dir, urlPath string, isRoot bool) ([]byte, error) {
	if cache == nil {
		b, err := renderDirectoryListing(fs, dir, urlPath, isRoot)
		if err != nil {
			return nil, err
		}
		return htmlMinifier.MinifyHTML(b), nil
	}
	return cache.Get(dir, func() ([]byte, error) {
		b, err := renderDirectoryListing(fs, dir, urlPath, isRoot)
		if err != nil {
			return nil, err
		}
		return htmlMinifier.MinifyHTML(b), nil
	})
}

// statExists reports whether path exists at all.
func statExists(fs Fs, path string) (os.FileInfo, bool) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, false
	}
	return info, true
}
