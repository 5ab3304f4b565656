package webserv

import "strings"

// SelectServer resolves the virtual host for a request: among the servers
// listening on (localHost, port), prefer the first whose
// server_name matches requestHost; fall back to the default server for
// that listen address (the one with no server_names). When neither exists
// the request has no virtual host and the caller answers 404.
func SelectServer(servers []*ServerConfig, localHost string, port Port, requestHost string) *ServerConfig {
	var candidates []*ServerConfig
	for _, s := range servers {
		if s.ListensOn(localHost, port) {
			candidates = append(candidates, s)
		}
	}

	for _, s := range candidates {
		if s.MatchesServerName(requestHost) {
			return s
		}
	}
	for _, s := range candidates {
		if s.IsDefaultFor() {
			return s
		}
	}
	return nil
}

// SelectLocation resolves the LocationConfig for path within server, with
// nginx-style precedence: an exact match wins outright; otherwise the
// first matching regex (in declaration order) beats any prefix match;
// otherwise the longest matching prefix wins; "/" is the catch-all when
// nothing else matches. Locations beginning with "@" (named locations) are
// never matched here; they are only reachable via try_files.
func SelectLocation(locations []*LocationConfig, path string) *LocationConfig {
	var exact *LocationConfig
	var firstRegex *LocationConfig
	var longestPrefix *LocationConfig
	var catchAll *LocationConfig

	for _, loc := range locations {
		if loc.IsNamed() {
			continue
		}
		switch loc.MatchType {
		case MatchExact:
			if exact == nil && trimTrailingSlash(path) == trimTrailingSlash(loc.Pattern) {
				exact = loc
			}
		case MatchRegexCaseSensitive, MatchRegexCaseInsensitive:
			if firstRegex == nil && loc.CompiledRegex != nil && loc.CompiledRegex.MatchString(path) {
				firstRegex = loc
			}
		case MatchPrefix:
			if loc.Pattern == "/" {
				if catchAll == nil {
					catchAll = loc
				}
				continue
			}
			if hasPrefixBoundary(path, loc.Pattern) {
				if longestPrefix == nil || len(loc.Pattern) > len(longestPrefix.Pattern) {
					longestPrefix = loc
				}
			}
		}
	}

	switch {
	case exact != nil:
		return exact
	case firstRegex != nil:
		return firstRegex
	case longestPrefix != nil:
		return longestPrefix
	default:
		return catchAll
	}
}

// trimTrailingSlash strips one trailing "/" from s, unless s is "/" itself,
// so "/foo" and "/foo/" compare equal for exact-match purposes.
func trimTrailingSlash(s string) string {
	if len(s) > 1 && strings.HasSuffix(s, "/") {
		return s[:len(s)-1]
	}
	return s
}

// hasPrefixBoundary reports whether pattern is a prefix of path at a "/"
// boundary: path equals pattern, path continues with "/" right after
// pattern, or pattern itself already ends in "/". Without this, a location
// pattern "/a" would wrongly match a request path "/ab".
func hasPrefixBoundary(path, pattern string) bool {
	if !strings.HasPrefix(path, pattern) {
		return false
	}
	if strings.HasSuffix(pattern, "/") {
		return true
	}
	rest := path[len(pattern):]
	return rest == "" || strings.HasPrefix(rest, "/")
}

// NamedLocation looks up a "@name" location by its full pattern (including
// the "@"), used to resolve try_files entries that name one.
func NamedLocation(locations []*LocationConfig, name string) *LocationConfig {
	for _, loc := range locations {
		if loc.Pattern == name {
			return loc
		}
	}
	return nil
}
