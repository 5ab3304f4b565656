package webserv

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HttpResponse is an outgoing response, serialized by WriteTo.
type HttpResponse struct {
	Version HttpVersion
	Status  ErrorCode
	Headers *HeaderMap
	Body    []byte

	// SuppressBody is set for HEAD responses: headers (including
	// Content-Length, computed from Body) are written, but Body itself
	// is not.
	SuppressBody bool
}

// NewHttpResponse returns an HTTP/1.1 response with the given status and an
// empty header set.
func NewHttpResponse(status ErrorCode) *HttpResponse {
	return &HttpResponse{
		Version: HTTP11,
		Status:  status,
		Headers: NewHeaderMap(),
	}
}

// serverBanner is the Server header value this engine identifies itself
// with.
const serverBanner = "webserv"

// WriteTo serializes r to w: status line, headers (filling in Date, Server,
// and Content-Length when the caller hasn't already set them), a blank
// line, then the body unless SuppressBody is set.
func (r *HttpResponse) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s %d %s\r\n", r.Version.String(), int(r.Status), r.Status.Reason())

	if !r.Headers.Has("Date") {
		r.Headers.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	if !r.Headers.Has("Server") {
		r.Headers.Set("Server", serverBanner)
	}
	if !r.Headers.Has("Content-Length") && !r.Headers.Has("Transfer-Encoding") {
		r.Headers.Set("Content-Length", fmt.Sprintf("%d", len(r.Body)))
	}

	r.Headers.Each(func(name, value string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
	})
	buf.WriteString("\r\n")

	if !r.SuppressBody {
		buf.Write(r.Body)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// KeepAlive sets the Connection header to reflect keepAlive, matching the
// policy ResolveKeepAlive computed for the request being answered.
func (r *HttpResponse) KeepAlive(keepAlive bool) {
	if keepAlive {
		r.Headers.Set("Connection", "keep-alive")
	} else {
		r.Headers.Set("Connection", "close")
	}
}

// NewTextResponse builds a simple text/plain or text/html response body,
// used for canned error pages and redirect bodies.
func NewTextResponse(status ErrorCode, contentType, body string) *HttpResponse {
	r := NewHttpResponse(status)
	r.Headers.Set("Content-Type", contentType)
	r.Body = []byte(body)
	return r
}

// defaultErrorPage renders a minimal HTML page for status, used when no
// location or server error_page directive supplies a custom body.
func defaultErrorPage(status ErrorCode) []byte {
	page := fmt.Sprintf(
		"<!DOCTYPE html>\n<html><head><title>%d %s</title></head>\n"+
			"<body><center><h1>%d %s</h1></center><hr><center>%s</center></body></html>\n",
		int(status), status.Reason(), int(status), status.Reason(), serverBanner,
	)
	return htmlMinifier.MinifyHTML([]byte(page))
}

// NewErrorResponse builds a canned error response for status, with no
// custom error_page lookup (callers that have a LocationConfig/ServerConfig
// in hand should prefer resolveErrorPage, see errorpage.go).
func NewErrorResponse(status ErrorCode) *HttpResponse {
	r := NewHttpResponse(status)
	r.Headers.Set("Content-Type", "text/html; charset=utf-8")
	r.Body = defaultErrorPage(status)
	return r
}

// NewRedirectResponse builds a 3xx response redirecting to location.
func NewRedirectResponse(status ErrorCode, location string) *HttpResponse {
	r := NewHttpResponse(status)
	r.Headers.Set("Location", location)
	r.Headers.Set("Content-Type", "text/html; charset=utf-8")
	page := fmt.Sprintf(
		"<!DOCTYPE html>\n<html><head><title>%d %s</title></head>\n"+
			"<body><center><h1>%d %s</h1></center><center>redirecting to <a href=\"%s\">%s</a></center></body></html>\n",
		int(status), status.Reason(), int(status), status.Reason(), location, location,
	)
	r.Body = htmlMinifier.MinifyHTML([]byte(page))
	return r
}
