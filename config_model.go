package webserv

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchType identifies how a LocationConfig's pattern is matched against a
// request path.
type MatchType uint8

// Match types. SelectLocation ranks them exact first, then either regex
// kind, then prefix.
const (
	MatchExact MatchType = iota
	MatchPrefix
	MatchRegexCaseSensitive
	MatchRegexCaseInsensitive
)

// ListenDirective is a (Host, Port) a ServerConfig accepts connections on.
type ListenDirective struct {
	Host Host
	Port Port
}

// ParseListenDirective parses strings like "8080", ":8080", "1.2.3.4:80",
// "[::1]:8080" or "localhost" into a ListenDirective.
func ParseListenDirective(s string) (ListenDirective, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ListenDirective{}, fmt.Errorf("webserv: empty listen directive")
	}

	// Bare port, e.g. "8080".
	if isAllDigits(s) {
		p, err := ParsePort(s)
		if err != nil {
			return ListenDirective{}, err
		}
		return ListenDirective{Host: Host{kind: HostWildcard, raw: "*"}, Port: p}, nil
	}

	hostStr, port, err := splitHostPort(s)
	if err != nil {
		return ListenDirective{}, err
	}

	var host Host
	if hostStr == "" {
		host = Host{kind: HostWildcard, raw: "*"}
	} else {
		host, err = NewHost(strings.Trim(hostStr, "[]"))
		if err != nil {
			return ListenDirective{}, err
		}
	}

	if err := validateListen(host, port); err != nil {
		return ListenDirective{}, err
	}

	return ListenDirective{Host: host, Port: port}, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validateListen(host Host, port Port) error {
	if host.IsWildcard() && port.IsUnspecified() {
		return fmt.Errorf("webserv: wildcard listen requires an explicit port")
	}
	if host.Kind() == HostName && strings.ContainsAny(host.String(), ":[]") {
		return fmt.Errorf("webserv: hostname must not contain ':' '[' ']': %q", host.String())
	}
	return nil
}

// String renders the directive back as "host:port".
func (l ListenDirective) String() string {
	return fmt.Sprintf("%s:%s", l.Host.String(), l.Port.String())
}

// CgiConfig is the CGI policy for a LocationConfig.
type CgiConfig struct {
	// Extensions maps a file extension (including the leading ".") to the
	// interpreter path to invoke, e.g. {".py": "/usr/bin/python3"}. An
	// empty interpreter means "execute the script directly" (its shebang
	// line, or direct execve of the script path).
	Extensions map[string]string

	// Timeout bounds how long a CGI child may run before it is killed.
	// Zero means the engine default (30s, see CgiExecutor).
	Timeout int

	// MaxOutputBytes bounds each of stdout and stderr drained from the
	// child, separately. Zero means the engine default (10 MiB).
	MaxOutputBytes Size
}

// Interpreter returns the interpreter configured for ext, and whether one is
// configured at all (an empty string with ok==true still means "run the
// script directly").
func (c *CgiConfig) Interpreter(ext string) (string, bool) {
	if c == nil {
		return "", false
	}
	interp, ok := c.Extensions[ext]
	return interp, ok
}

// UploadConfig is the policy for an upload route (§4.6.2).
type UploadConfig struct {
	Directory        string
	MaxFileSize      Size
	MaxTotalSize     Size
	AllowedMIMETypes []string // empty means "no restriction"
	FilenamePattern  *regexp.Regexp
}

// TryFilesEntry is one entry of a LocationConfig's try_files list.
type TryFilesEntry struct {
	// Pattern is the path template, with "$uri" substituted for the
	// request path. A pattern beginning with "=" (e.g. "=404") is a
	// terminal status instead of a path to probe.
	Pattern string
}

// IsTerminalStatus reports whether e is an "=NNN" terminal entry, returning
// the status code when it is.
func (e TryFilesEntry) IsTerminalStatus() (ErrorCode, bool) {
	if !strings.HasPrefix(e.Pattern, "=") {
		return 0, false
	}
	var code int
	if _, err := fmt.Sscanf(e.Pattern, "=%d", &code); err != nil {
		return 0, false
	}
	ec, err := NewErrorCode(code)
	if err != nil {
		return 0, false
	}
	return ec, true
}

// ReturnRedirect is a location- or server-level return directive that
// redirects (status is always 3xx).
type ReturnRedirect struct {
	Status ErrorCode
	URI    string
}

// ReturnContent is a location- or server-level return directive that
// serves fixed content (status is 2xx/4xx/5xx).
type ReturnContent struct {
	Status ErrorCode
	Body   string
}

// LocationConfig is a URL-pattern-scoped block of configuration selecting a
// handler for matching requests.
type LocationConfig struct {
	Pattern   string
	MatchType MatchType
	// CompiledRegex is populated once, at config load, for
	// MatchRegexCaseSensitive/MatchRegexCaseInsensitive locations;
	// nothing recompiles a pattern per request.
	CompiledRegex *regexp.Regexp

	Root                 string
	Alias                string
	Index                []string
	AllowedMethods       map[HttpMethod]bool
	Autoindex            bool
	TryFiles             []TryFilesEntry
	ReturnRedirect       *ReturnRedirect
	ReturnContent        *ReturnContent
	Upload               *UploadConfig
	Cgi                  *CgiConfig
	ErrorPages           map[ErrorCode]string
	ClientMaxBodySize    Size
	ClientBodyBufferSize Size
	ProxyPass            string
	CustomHeaders        map[string]string
}

// IsNamed reports whether l is a "@name" location, only reachable via
// try_files, never matched directly by URL.
func (l *LocationConfig) IsNamed() bool {
	return strings.HasPrefix(l.Pattern, "@")
}

// AllowsMethod reports whether m is in l's allowed-method set.
func (l *LocationConfig) AllowsMethod(m HttpMethod) bool {
	return l.AllowedMethods[m]
}

// AllowedMethodNames returns the allowed methods sorted for a stable
// `Allow:` header value.
func (l *LocationConfig) AllowedMethodNames() []string {
	order := []HttpMethod{MethodGet, MethodHead, MethodPost, MethodPut, MethodDelete, MethodOptions, MethodPatch, MethodTrace, MethodConnect}
	var names []string
	for _, m := range order {
		if l.AllowedMethods[m] {
			names = append(names, m.String())
		}
	}
	return names
}

// IsUploadRoute reports whether l is an upload route: upload config present
// and POST allowed.
func (l *LocationConfig) IsUploadRoute() bool {
	return l.Upload != nil && l.AllowsMethod(MethodPost)
}

// EffectiveMaxBodySize returns the smaller of l's and the server's
// client_max_body_size; the effective limit is the minimum of the two, not
// either alone.
func (l *LocationConfig) EffectiveMaxBodySize(serverMax Size) Size {
	if l.ClientMaxBodySize == 0 {
		return serverMax
	}
	if serverMax == 0 {
		return l.ClientMaxBodySize
	}
	if l.ClientMaxBodySize < serverMax {
		return l.ClientMaxBodySize
	}
	return serverMax
}

// ServerConfig is one virtual host: a set of listen addresses, server
// names, and an ordered list of locations.
type ServerConfig struct {
	Listen            []ListenDirective
	ServerNames       []string
	Root              string
	Index             []string
	ErrorPages        map[ErrorCode]string
	ClientMaxBodySize Size
	ReturnRedirect    *ReturnRedirect
	ReturnContent     *ReturnContent
	Locations         []*LocationConfig
}

// IsDefaultFor reports whether s is the default server for a listen: it
// has no server_names at all. A bare "*" server_name matches any host but
// does not by itself make the server default.
func (s *ServerConfig) IsDefaultFor() bool {
	return len(s.ServerNames) == 0
}

// MatchesServerName reports whether host matches any of s's server_names,
// case-insensitively, including "*.suffix" and bare "*" wildcards.
func (s *ServerConfig) MatchesServerName(host string) bool {
	for _, name := range s.ServerNames {
		if MatchesServerName(host, name) {
			return true
		}
	}
	return false
}

// ListensOn reports whether s has a ListenDirective matching (host, port),
// treating a wildcard listen host as matching any local host.
func (s *ServerConfig) ListensOn(localHost string, port Port) bool {
	for _, l := range s.Listen {
		if l.Port != port {
			continue
		}
		if l.Host.IsWildcard() || strings.EqualFold(l.Host.String(), localHost) {
			return true
		}
	}
	return false
}

// HttpConfig is the top-level, read-only-after-load configuration: worker
// settings, global defaults, and the list of virtual hosts.
type HttpConfig struct {
	WorkerProcesses   int
	WorkerConnections int
	KeepAliveTimeout  int // seconds
	SendTimeout       int // seconds
	AccessLogPath     string
	ErrorLogPath      string
	MimeTypesPath     string
	MimeTypes         map[string]string // lazily loaded, see mimetypes.go
	ClientMaxBodySize Size
	ErrorPages        map[ErrorCode]string
	Servers           []*ServerConfig
}

// absoluteMaxBodySize is the hard ceiling no client_max_body_size may
// exceed. Any smaller configured limit still wins via
// EffectiveMaxBodySize.
const absoluteMaxBodySize = 1 << 30 // 1 GiB

// DefaultMaxBodySize is used when neither server nor location configure a
// client_max_body_size.
const DefaultMaxBodySize Size = 10 * MB
