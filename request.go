package webserv

import "strings"

// HeaderMap is a case-insensitive multi-value header collection, preserving
// the first-seen canonical casing of each header name for re-emission.
type HeaderMap struct {
	canonical map[string]string   // lower(name) -> first-seen-cased name
	values    map[string][]string // lower(name) -> values, in arrival order
	order     []string            // lower(name), in first-seen order
}

// NewHeaderMap returns an empty HeaderMap.
func NewHeaderMap() *HeaderMap {
	return &HeaderMap{
		canonical: map[string]string{},
		values:    map[string][]string{},
	}
}

// Add appends value under name, remembering name's first-seen casing.
func (h *HeaderMap) Add(name, value string) {
	key := strings.ToLower(name)
	if _, ok := h.canonical[key]; !ok {
		h.canonical[key] = name
		h.order = append(h.order, key)
	}
	h.values[key] = append(h.values[key], value)
}

// Set replaces any existing values for name with a single value.
func (h *HeaderMap) Set(name, value string) {
	key := strings.ToLower(name)
	if _, ok := h.canonical[key]; !ok {
		h.canonical[key] = name
		h.order = append(h.order, key)
	}
	h.canonical[key] = name
	h.values[key] = []string{value}
}

// Get returns the first value for name, or "" if absent.
func (h *HeaderMap) Get(name string) string {
	vs := h.values[strings.ToLower(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns every value for name, in arrival order.
func (h *HeaderMap) Values(name string) []string {
	return h.values[strings.ToLower(name)]
}

// Has reports whether name was set at all.
func (h *HeaderMap) Has(name string) bool {
	_, ok := h.values[strings.ToLower(name)]
	return ok
}

// Del removes all values for name.
func (h *HeaderMap) Del(name string) {
	key := strings.ToLower(name)
	delete(h.values, key)
	delete(h.canonical, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Each calls fn once per (canonical-name, value) pair, in arrival order.
func (h *HeaderMap) Each(fn func(name, value string)) {
	for _, key := range h.order {
		name := h.canonical[key]
		for _, v := range h.values[key] {
			fn(name, v)
		}
	}
}

// HttpRequest is a fully- or partially-parsed request, built incrementally
// by Parser.Feed.
type HttpRequest struct {
	Method      HttpMethod
	RawTarget   string
	Uri         Uri
	Version     HttpVersion
	Headers     *HeaderMap
	Body        []byte
	Trailers    *HeaderMap

	// ContentLength is -1 until the headers are parsed and for a chunked
	// body, 0 when the request declares no body, otherwise the parsed
	// Content-Length value. Chunked is true when a
	// "Transfer-Encoding: chunked" header was present; the parser
	// rejects a request carrying both.
	ContentLength int64
	Chunked       bool

	// ConnectionHeader records the client's Connection header intent,
	// independent of the version-based default computed by
	// ResolveKeepAlive.
	ConnectionHeader string
}

// NewHttpRequest returns a zero-value request ready to be fed bytes by a
// Parser.
func NewHttpRequest() *HttpRequest {
	return &HttpRequest{
		Headers:       NewHeaderMap(),
		ContentLength: -1,
	}
}

// Host returns the request's effective host: the Host header for
// origin-form targets, or the URI's host for absolute-form targets.
func (r *HttpRequest) Host() string {
	if r.Uri.IsAbsolute() && r.Uri.Host != "" {
		return r.Uri.Host
	}
	return stripPort(r.Headers.Get("Host"))
}

func stripPort(hostHeader string) string {
	if hostHeader == "" {
		return ""
	}
	if strings.HasPrefix(hostHeader, "[") {
		if i := strings.IndexByte(hostHeader, ']'); i >= 0 {
			return hostHeader[:i+1]
		}
		return hostHeader
	}
	if i := strings.LastIndexByte(hostHeader, ':'); i >= 0 {
		return hostHeader[:i]
	}
	return hostHeader
}

// ResolveKeepAlive applies the keep-alive policy: HTTP/1.1 defaults to
// keep-alive unless Connection: close is present; HTTP/1.0 defaults to
// close unless Connection: keep-alive is present.
func (r *HttpRequest) ResolveKeepAlive() bool {
	conn := strings.ToLower(r.ConnectionHeader)
	tokens := strings.Split(conn, ",")
	has := func(tok string) bool {
		for _, t := range tokens {
			if strings.TrimSpace(t) == tok {
				return true
			}
		}
		return false
	}

	if r.Version == HTTP11 {
		return !has("close")
	}
	return has("keep-alive")
}
