package webserv

import (
	"fmt"
	"strings"
)

// Validate checks the structural invariants of an HttpConfig tree:
// at least one server, listen/root/location completeness, default-server
// uniqueness per listen address, and the per-location conflict rules. It
// returns the first violation found; callers that want every violation
// should call ValidateAll.
func (c *HttpConfig) Validate() error {
	errs := c.ValidateAll()
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// ValidateAll runs every invariant check and returns all violations found,
// rather than stopping at the first one. Useful for config-check tooling
// that wants to report everything wrong in one pass.
func (c *HttpConfig) ValidateAll() []error {
	var errs []error

	if len(c.Servers) == 0 {
		errs = append(errs, fmt.Errorf("webserv: http config must define at least one server"))
	}

	if c.ClientMaxBodySize < 0 || c.ClientMaxBodySize.Bytes() > absoluteMaxBodySize {
		errs = append(errs, fmt.Errorf("webserv: client_max_body_size %s exceeds absolute ceiling", c.ClientMaxBodySize))
	}

	// default-server uniqueness: at most one default server per distinct
	// (host, port) listen address.
	defaultOwners := map[string]bool{}

	for si, srv := range c.Servers {
		if err := srv.validate(si); err != nil {
			errs = append(errs, err)
		}

		if srv.IsDefaultFor() {
			for _, l := range srv.Listen {
				key := l.String()
				if defaultOwners[key] {
					errs = append(errs, fmt.Errorf("webserv: server[%d]: more than one default server for listen %s", si, key))
				}
				defaultOwners[key] = true
			}
		}
	}

	errs = append(errs, validateServerNameOverlap(c.Servers)...)

	return errs
}

// validateServerNameOverlap rejects two servers that listen on the same
// (host, port) and both claim an overlapping server_name, since a request
// arriving for that name would then be ambiguous between them. Two default
// servers on the same listen (empty server_names on both sides) are caught
// separately by the defaultOwners check above, not here.
func validateServerNameOverlap(servers []*ServerConfig) []error {
	var errs []error

	for i := 0; i < len(servers); i++ {
		for j := i + 1; j < len(servers); j++ {
			a, b := servers[i], servers[j]
			if a.IsDefaultFor() || b.IsDefaultFor() {
				continue
			}
			if !listensOverlap(a.Listen, b.Listen) {
				continue
			}
			if serverNamesOverlap(a.ServerNames, b.ServerNames) {
				errs = append(errs, fmt.Errorf("webserv: server[%d] and server[%d]: overlapping server_name on the same listen address", i, j))
			}
		}
	}

	return errs
}

// listensOverlap reports whether a and b share a (host, port) pair, treating
// a wildcard host on either side as matching any host.
func listensOverlap(a, b []ListenDirective) bool {
	for _, la := range a {
		for _, lb := range b {
			if la.Port != lb.Port {
				continue
			}
			if la.Host.IsWildcard() || lb.Host.IsWildcard() || strings.EqualFold(la.Host.String(), lb.Host.String()) {
				return true
			}
		}
	}
	return false
}

// serverNamesOverlap reports whether any name in a matches, or is matched
// by, any name in b: an exact (case-insensitive) match, or a literal
// hostname falling under the other side's "*.suffix"/"*" wildcard.
func serverNamesOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				return true
			}
			if !strings.Contains(x, "*") && MatchesServerName(x, y) {
				return true
			}
			if !strings.Contains(y, "*") && MatchesServerName(y, x) {
				return true
			}
		}
	}
	return false
}

func (s *ServerConfig) validate(index int) error {
	if len(s.Listen) == 0 {
		return fmt.Errorf("webserv: server[%d]: must declare at least one listen directive", index)
	}
	if len(s.Locations) == 0 && s.Root == "" && s.ReturnRedirect == nil && s.ReturnContent == nil {
		return fmt.Errorf("webserv: server[%d]: must declare locations, root, or a return directive", index)
	}
	for code, uri := range s.ErrorPages {
		if !code.IsError() {
			return fmt.Errorf("webserv: server[%d]: error_page %d is not a 4xx/5xx status", index, code)
		}
		if !strings.HasPrefix(uri, "/") {
			return fmt.Errorf("webserv: server[%d]: error_page uri %q must start with '/'", index, uri)
		}
	}
	for li, loc := range s.Locations {
		if err := loc.validate(index, li, s); err != nil {
			return err
		}
	}
	return nil
}

func (l *LocationConfig) validate(serverIndex, locIndex int, srv *ServerConfig) error {
	tag := fmt.Sprintf("webserv: server[%d].location[%d] (%s)", serverIndex, locIndex, l.Pattern)

	if l.Pattern == "" {
		return fmt.Errorf("%s: pattern must not be empty", tag)
	}
	if (l.MatchType == MatchRegexCaseSensitive || l.MatchType == MatchRegexCaseInsensitive) && l.CompiledRegex == nil {
		return fmt.Errorf("%s: regex location missing a compiled pattern", tag)
	}

	if !l.IsNamed() && len(l.AllowedMethodNames()) == 0 {
		return fmt.Errorf("%s: must allow at least one HTTP method", tag)
	}

	if l.Root != "" && l.Alias != "" {
		return fmt.Errorf("%s: root and alias are mutually exclusive", tag)
	}
	if l.Root == "" && l.Alias == "" && srv.Root == "" {
		return fmt.Errorf("%s: must set root or alias (no root to inherit from the server either)", tag)
	}

	exclusiveCount := 0
	if l.ProxyPass != "" {
		exclusiveCount++
	}
	if l.IsUploadRoute() {
		exclusiveCount++
	}
	if l.Cgi != nil {
		exclusiveCount++
	}
	if l.ReturnRedirect != nil || l.ReturnContent != nil {
		exclusiveCount++
	}
	if exclusiveCount > 1 {
		return fmt.Errorf("%s: proxy_pass, upload, cgi, and return are mutually exclusive", tag)
	}

	if l.Upload != nil && !l.AllowsMethod(MethodPost) {
		return fmt.Errorf("%s: upload directive requires POST to be an allowed method", tag)
	}

	if l.ReturnRedirect != nil {
		if !l.ReturnRedirect.Status.IsRedirection() {
			return fmt.Errorf("%s: return redirect status %d is not a 3xx", tag, l.ReturnRedirect.Status)
		}
		if !strings.HasPrefix(l.ReturnRedirect.URI, "/") && !strings.Contains(l.ReturnRedirect.URI, "://") {
			return fmt.Errorf("%s: return redirect target must be absolute or start with '/'", tag)
		}
	}
	if l.ReturnContent != nil {
		if l.ReturnContent.Status.IsRedirection() {
			return fmt.Errorf("%s: return content status must not be a 3xx (use redirect form)", tag)
		}
	}

	for code, uri := range l.ErrorPages {
		if !code.IsError() {
			return fmt.Errorf("%s: error_page %d is not a 4xx/5xx status", tag, code)
		}
		if !strings.HasPrefix(uri, "/") {
			return fmt.Errorf("%s: error_page uri %q must start with '/'", tag, uri)
		}
	}

	if l.ClientMaxBodySize < 0 || l.ClientMaxBodySize.Bytes() > absoluteMaxBodySize {
		return fmt.Errorf("%s: client_max_body_size %s exceeds absolute ceiling", tag, l.ClientMaxBodySize)
	}

	for name := range l.CustomHeaders {
		if isForbiddenResponseHeader(name) {
			return fmt.Errorf("%s: custom header %q is forbidden (managed by the engine)", tag, name)
		}
	}

	return nil
}

// forbiddenCustomHeaders are response headers the engine computes itself
// and that a location's custom add_header directive must not override.
var forbiddenCustomHeaders = map[string]bool{
	"content-length":    true,
	"transfer-encoding": true,
	"connection":        true,
	"host":              true,
}

func isForbiddenResponseHeader(name string) bool {
	return forbiddenCustomHeaders[strings.ToLower(name)]
}
