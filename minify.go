package webserv

import (
	"bytes"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

// pageMinifier minifies server-generated HTML (error pages, redirect
// bodies, directory listings). Static files served from disk are streamed
// verbatim and never passed through this: minifying user content would
// silently corrupt arbitrary bytes served under other MIME types, so only
// the one MIME type this engine generates itself is registered.
type pageMinifier struct {
	m *minify.M
}

var htmlMinifier = newPageMinifier()

func newPageMinifier() *pageMinifier {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	return &pageMinifier{m: m}
}

// MinifyHTML minifies b as HTML, returning b unchanged if minification
// fails (a generated page with a minor markup quirk should still be
// served, just unminified).
func (p *pageMinifier) MinifyHTML(b []byte) []byte {
	var buf bytes.Buffer
	if err := p.m.Minify("text/html", &buf, bytes.NewReader(b)); err != nil {
		return b
	}
	return buf.Bytes()
}
