package webserv

import (
	"fmt"
	"strings"
)

// Uri is a parsed request-target or absolute URI: scheme/host/port/path/
// query/fragment. Absolute iff Scheme is non-empty.
type Uri struct {
	Scheme      string
	Host        string
	Port        Port
	Path        string
	RawQuery    string
	Fragment    string
	QueryString *QueryString
}

// ParseUri parses s, which may be an absolute URI ("http://host/path") or a
// request-target (origin-form: "/path?query", or "*"). The path is
// normalized (removing "." / ".." with no traversal above root) and
// defaults to "/" when absent on an absolute http/https URI.
func ParseUri(s string) (Uri, error) {
	var u Uri

	rest := s
	if i := strings.Index(rest, "://"); i > 0 && isValidScheme(rest[:i]) {
		u.Scheme = strings.ToLower(rest[:i])
		rest = rest[i+3:]

		hostPort := rest
		if j := strings.IndexAny(rest, "/?#"); j >= 0 {
			hostPort = rest[:j]
			rest = rest[j:]
		} else {
			rest = ""
		}

		host, port, err := splitHostPort(hostPort)
		if err != nil {
			return Uri{}, err
		}
		u.Host = host
		u.Port = port
	}

	// rest is now path[?query][#fragment]
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		u.Fragment = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		u.RawQuery = rest[i+1:]
		rest = rest[:i]
	}

	u.Path = rest
	if u.Path == "" && (u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "") {
		u.Path = "/"
	}

	p, err := NewPath(u.Path)
	if err != nil {
		return Uri{}, err
	}
	u.Path = p.Normalize().String()

	u.QueryString = ParseQueryString(u.RawQuery)

	return u, nil
}

func isValidScheme(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func splitHostPort(hostPort string) (string, Port, error) {
	if hostPort == "" {
		return "", PortUnspecified, nil
	}
	if strings.HasPrefix(hostPort, "[") {
		// [ipv6]:port or [ipv6]
		end := strings.IndexByte(hostPort, ']')
		if end < 0 {
			return "", 0, fmt.Errorf("webserv: malformed IPv6 host %q", hostPort)
		}
		host := hostPort[:end+1]
		rest := hostPort[end+1:]
		if strings.HasPrefix(rest, ":") {
			p, err := ParsePort(rest[1:])
			if err != nil {
				return "", 0, err
			}
			return host, p, nil
		}
		return host, PortUnspecified, nil
	}
	if i := strings.LastIndexByte(hostPort, ':'); i >= 0 {
		p, err := ParsePort(hostPort[i+1:])
		if err != nil {
			return "", 0, err
		}
		return hostPort[:i], p, nil
	}
	return hostPort, PortUnspecified, nil
}

// IsAbsolute reports whether u carries a scheme.
func (u Uri) IsAbsolute() bool { return u.Scheme != "" }

// String reassembles u into its canonical string form. ParseUri(u.String())
// is idempotent for already-normalized URIs.
func (u Uri) String() string {
	var b strings.Builder
	if u.IsAbsolute() {
		b.WriteString(u.Scheme)
		b.WriteString("://")
		b.WriteString(u.Host)
		if !u.Port.IsUnspecified() {
			b.WriteByte(':')
			b.WriteString(u.Port.String())
		}
	}
	b.WriteString(u.Path)
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}
	return b.String()
}
