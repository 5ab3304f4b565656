package webserv

import "fmt"

// HttpVersion is an HTTP version number (major, minor).
type HttpVersion struct {
	Major int
	Minor int
}

// Versions recognized by the parser. HTTP/2.0 is recognized syntactically
// (so the parser doesn't fail on it) but is rejected semantically with
// 505.
var (
	HTTP10 = HttpVersion{Major: 1, Minor: 0}
	HTTP11 = HttpVersion{Major: 1, Minor: 1}
	HTTP20 = HttpVersion{Major: 2, Minor: 0}
)

// ParseHttpVersion parses strings of the exact form "HTTP/x.y".
func ParseHttpVersion(s string) (HttpVersion, error) {
	var v HttpVersion
	if n, _ := fmt.Sscanf(s, "HTTP/%d.%d", &v.Major, &v.Minor); n != 2 {
		return HttpVersion{}, fmt.Errorf("webserv: malformed HTTP version: %q", s)
	}
	// Sscanf stops at the first non-matching byte; re-rendering catches
	// trailing garbage like "HTTP/1.1x" and negative components alike.
	if v.Major < 0 || v.Minor < 0 || s != v.String() {
		return HttpVersion{}, fmt.Errorf("webserv: malformed HTTP version: %q", s)
	}
	return v, nil
}

// IsSupported reports whether v is a version the core implements end to end
// (1.0 or 1.1). 2.0 parses but is not "supported" in this sense.
func (v HttpVersion) IsSupported() bool {
	return v == HTTP10 || v == HTTP11
}

// String implements fmt.Stringer, e.g. "HTTP/1.1".
func (v HttpVersion) String() string {
	return fmt.Sprintf("HTTP/%d.%d", v.Major, v.Minor)
}
