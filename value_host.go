package webserv

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// HostKind identifies which shape of host a Host value carries.
type HostKind uint8

// Host kinds.
const (
	HostIPv4 HostKind = iota
	HostIPv6
	HostName
	HostWildcard
)

// Host is a validated host, tagged by HostKind.
//
// Strings are validated per RFC 1035/3986: max 253 characters overall, each
// label at most 63 characters, no leading/trailing dot, and no empty
// ("..") labels. A bare "*" is the HostWildcard kind and matches any Host
// header; it is distinct from "no server_names", which the ServerConfig
// resolver already treats as the default server.
type Host struct {
	kind HostKind
	raw  string
}

// NewHost validates s and returns the corresponding Host.
func NewHost(s string) (Host, error) {
	if s == "" {
		return Host{}, fmt.Errorf("webserv: empty host")
	}
	if s == "*" {
		return Host{kind: HostWildcard, raw: "*"}, nil
	}
	if ip := net.ParseIP(s); ip != nil {
		if ip.To4() != nil {
			return Host{kind: HostIPv4, raw: s}, nil
		}
		return Host{kind: HostIPv6, raw: s}, nil
	}
	if err := validateHostname(s); err != nil {
		return Host{}, err
	}
	return Host{kind: HostName, raw: strings.ToLower(s)}, nil
}

func validateHostname(s string) error {
	if len(s) > 253 {
		return fmt.Errorf("webserv: hostname too long: %d chars", len(s))
	}
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return fmt.Errorf("webserv: hostname has leading/trailing dot: %q", s)
	}
	if strings.Contains(s, "..") {
		return fmt.Errorf("webserv: hostname has empty label: %q", s)
	}

	// Wildcard subdomain form, e.g. "*.example.com".
	labels := strings.Split(s, ".")
	for i, label := range labels {
		if label == "*" && i == 0 {
			continue
		}
		if label == "" {
			return fmt.Errorf("webserv: hostname has empty label: %q", s)
		}
		if len(label) > 63 {
			return fmt.Errorf("webserv: hostname label too long: %q", label)
		}
	}

	// Reject anything idna can't round-trip as a syntactically valid
	// (possibly punycode) DNS name, unless it's the leading-wildcard form
	// which idna does not understand.
	if labels[0] != "*" {
		if _, err := idna.Lookup.ToASCII(s); err != nil {
			return fmt.Errorf("webserv: invalid hostname %q: %w", s, err)
		}
	}

	return nil
}

// Kind returns the HostKind of h.
func (h Host) Kind() HostKind { return h.kind }

// String returns the validated string form of h.
func (h Host) String() string { return h.raw }

// IsWildcard reports whether h is the bare "*" wildcard.
func (h Host) IsWildcard() bool { return h.kind == HostWildcard }

// MatchesServerName reports whether requestHost (typically a request's Host)
// matches pattern, a server_name entry which may be a literal hostname, the
// bare wildcard "*", or a "*.suffix" wildcard. Comparison is
// case-insensitive.
func MatchesServerName(requestHost, pattern string) bool {
	requestHost = strings.ToLower(strings.TrimSpace(requestHost))
	pattern = strings.ToLower(strings.TrimSpace(pattern))

	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:] // keep leading dot: ".example.com"
		return strings.HasSuffix(requestHost, suffix) && requestHost != suffix[1:]
	}
	return requestHost == pattern
}
