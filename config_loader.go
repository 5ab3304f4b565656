package webserv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v2"
)

// wireConfig is the on-disk shape of an HttpConfig: every field is a plain
// string/int/bool/map so it round-trips through toml, yaml, and ini alike.
// LoadConfigFile converts it into the typed model.
//
// This loader is a convenience: the engine's real contract is the in-memory
// HttpConfig tree. Nothing downstream of LoadConfigFile knows or cares which
// file format produced it.
type wireConfig struct {
	WorkerProcesses   int               `toml:"worker_processes" yaml:"worker_processes" mapstructure:"worker_processes"`
	WorkerConnections int               `toml:"worker_connections" yaml:"worker_connections" mapstructure:"worker_connections"`
	KeepAliveTimeout  int               `toml:"keepalive_timeout" yaml:"keepalive_timeout" mapstructure:"keepalive_timeout"`
	SendTimeout       int               `toml:"send_timeout" yaml:"send_timeout" mapstructure:"send_timeout"`
	AccessLog         string            `toml:"access_log" yaml:"access_log" mapstructure:"access_log"`
	ErrorLog          string            `toml:"error_log" yaml:"error_log" mapstructure:"error_log"`
	MimeTypesPath     string            `toml:"mime_types_path" yaml:"mime_types_path" mapstructure:"mime_types_path"`
	ClientMaxBodySize string            `toml:"client_max_body_size" yaml:"client_max_body_size" mapstructure:"client_max_body_size"`
	ErrorPages        map[string]string `toml:"error_pages" yaml:"error_pages" mapstructure:"error_pages"`
	Servers           []wireServer      `toml:"server" yaml:"server" mapstructure:"server"`
}

type wireServer struct {
	Listen            []string          `toml:"listen" yaml:"listen" mapstructure:"listen"`
	ServerNames       []string          `toml:"server_name" yaml:"server_name" mapstructure:"server_name"`
	Root              string            `toml:"root" yaml:"root" mapstructure:"root"`
	Index             []string          `toml:"index" yaml:"index" mapstructure:"index"`
	ErrorPages        map[string]string `toml:"error_pages" yaml:"error_pages" mapstructure:"error_pages"`
	ClientMaxBodySize string            `toml:"client_max_body_size" yaml:"client_max_body_size" mapstructure:"client_max_body_size"`
	ReturnStatus      int               `toml:"return_status" yaml:"return_status" mapstructure:"return_status"`
	ReturnTarget      string            `toml:"return_target" yaml:"return_target" mapstructure:"return_target"`
	Locations         []wireLocation    `toml:"location" yaml:"location" mapstructure:"location"`
}

type wireLocation struct {
	Pattern              string            `toml:"pattern" yaml:"pattern" mapstructure:"pattern"`
	MatchType            string            `toml:"match" yaml:"match" mapstructure:"match"` // "exact"|"prefix"|"regex"|"regex_ci"
	Root                 string            `toml:"root" yaml:"root" mapstructure:"root"`
	Alias                string            `toml:"alias" yaml:"alias" mapstructure:"alias"`
	Index                []string          `toml:"index" yaml:"index" mapstructure:"index"`
	Methods              []string          `toml:"methods" yaml:"methods" mapstructure:"methods"`
	Autoindex            bool              `toml:"autoindex" yaml:"autoindex" mapstructure:"autoindex"`
	TryFiles             []string          `toml:"try_files" yaml:"try_files" mapstructure:"try_files"`
	ReturnStatus         int               `toml:"return_status" yaml:"return_status" mapstructure:"return_status"`
	ReturnTarget         string            `toml:"return_target" yaml:"return_target" mapstructure:"return_target"`
	ProxyPass            string            `toml:"proxy_pass" yaml:"proxy_pass" mapstructure:"proxy_pass"`
	ErrorPages           map[string]string `toml:"error_pages" yaml:"error_pages" mapstructure:"error_pages"`
	ClientMaxBodySize    string            `toml:"client_max_body_size" yaml:"client_max_body_size" mapstructure:"client_max_body_size"`
	ClientBodyBufferSize string            `toml:"client_body_buffer_size" yaml:"client_body_buffer_size" mapstructure:"client_body_buffer_size"`
	CustomHeaders        map[string]string `toml:"add_header" yaml:"add_header" mapstructure:"add_header"`

	Upload *wireUpload `toml:"upload" yaml:"upload" mapstructure:"upload"`
	Cgi    *wireCgi    `toml:"cgi" yaml:"cgi" mapstructure:"cgi"`
}

type wireUpload struct {
	Directory        string   `toml:"directory" yaml:"directory" mapstructure:"directory"`
	MaxFileSize      string   `toml:"max_file_size" yaml:"max_file_size" mapstructure:"max_file_size"`
	MaxTotalSize     string   `toml:"max_total_size" yaml:"max_total_size" mapstructure:"max_total_size"`
	AllowedMIMETypes []string `toml:"allowed_mime_types" yaml:"allowed_mime_types" mapstructure:"allowed_mime_types"`
	FilenamePattern  string   `toml:"filename_pattern" yaml:"filename_pattern" mapstructure:"filename_pattern"`
}

type wireCgi struct {
	Extensions     map[string]string `toml:"extensions" yaml:"extensions" mapstructure:"extensions"`
	Timeout        int               `toml:"timeout" yaml:"timeout" mapstructure:"timeout"`
	MaxOutputBytes string            `toml:"max_output_bytes" yaml:"max_output_bytes" mapstructure:"max_output_bytes"`
}

// LoadConfigFile reads an HttpConfig from path, dispatching on extension:
// .toml (primary format), .yaml/.yml, or .ini. An .ini file supplies only
// the flat scalars and declares no servers, so its result fails Validate.
func LoadConfigFile(path string) (*HttpConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("webserv: read config %s: %w", path, err)
	}

	var wc wireConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &wc); err != nil {
			return nil, fmt.Errorf("webserv: parse toml config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &wc); err != nil {
			return nil, fmt.Errorf("webserv: parse yaml config: %w", err)
		}
	case ".ini":
		if err := loadIniScalars(path, &wc); err != nil {
			return nil, fmt.Errorf("webserv: parse ini config: %w", err)
		}
	default:
		return nil, fmt.Errorf("webserv: unrecognized config extension %q", ext)
	}

	return wc.toHttpConfig()
}

// loadIniScalars reads the flat, global scalar directives from an ini file.
// ini.v1 has no native notion of repeated [server] blocks with nested
// [[location]] lists, so ini input is restricted to the top-level scalars;
// anything server-shaped must come from toml or yaml. ini.v1 parses the file
// into key/value pairs; decodeMap (mapstructure) then does the actual
// string-to-struct decode, the same path a generic map input (e.g. from a
// test fixture) goes through.
func loadIniScalars(path string, wc *wireConfig) error {
	f, err := ini.Load(path)
	if err != nil {
		return err
	}

	raw := map[string]interface{}{}
	for _, key := range f.Section("").Keys() {
		raw[key.Name()] = key.String()
	}
	return decodeMap(raw, wc)
}

// decodeMap decodes a generic map[string]interface{} into out via
// mapstructure, weakly typed so ini.v1's string-only key/value pairs (e.g.
// "1024" for worker_connections) coerce into the target struct's int/bool
// fields.
func decodeMap(input map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func (wc *wireConfig) toHttpConfig() (*HttpConfig, error) {
	c := &HttpConfig{
		WorkerProcesses:   wc.WorkerProcesses,
		WorkerConnections: wc.WorkerConnections,
		KeepAliveTimeout:  wc.KeepAliveTimeout,
		SendTimeout:       wc.SendTimeout,
		AccessLogPath:     wc.AccessLog,
		ErrorLogPath:      wc.ErrorLog,
		MimeTypesPath:     wc.MimeTypesPath,
	}

	if wc.WorkerProcesses == 0 {
		c.WorkerProcesses = 1
	}
	if wc.WorkerConnections == 0 {
		c.WorkerConnections = 1024
	}
	if wc.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = 75
	}

	var err error
	c.ClientMaxBodySize, err = sizeOrDefault(wc.ClientMaxBodySize, DefaultMaxBodySize)
	if err != nil {
		return nil, err
	}
	c.ErrorPages, err = errorPageMap(wc.ErrorPages)
	if err != nil {
		return nil, err
	}

	for si, ws := range wc.Servers {
		srv, err := ws.toServerConfig()
		if err != nil {
			return nil, fmt.Errorf("webserv: server[%d]: %w", si, err)
		}
		// http-level error_page entries are inherited by every server
		// that doesn't override the code itself, so the serve-time
		// lookup only ever walks location -> server -> built-in.
		for code, uri := range c.ErrorPages {
			if srv.ErrorPages == nil {
				srv.ErrorPages = map[ErrorCode]string{}
			}
			if _, ok := srv.ErrorPages[code]; !ok {
				srv.ErrorPages[code] = uri
			}
		}
		c.Servers = append(c.Servers, srv)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (ws *wireServer) toServerConfig() (*ServerConfig, error) {
	s := &ServerConfig{
		ServerNames: ws.ServerNames,
		Root:        ws.Root,
		Index:       ws.Index,
	}

	for _, l := range ws.Listen {
		ld, err := ParseListenDirective(l)
		if err != nil {
			return nil, err
		}
		s.Listen = append(s.Listen, ld)
	}

	var err error
	s.ClientMaxBodySize, err = sizeOrDefault(ws.ClientMaxBodySize, 0)
	if err != nil {
		return nil, err
	}
	s.ErrorPages, err = errorPageMap(ws.ErrorPages)
	if err != nil {
		return nil, err
	}

	if ws.ReturnStatus != 0 {
		code, err := NewErrorCode(ws.ReturnStatus)
		if err != nil {
			return nil, err
		}
		if code.IsRedirection() {
			s.ReturnRedirect = &ReturnRedirect{Status: code, URI: ws.ReturnTarget}
		} else {
			s.ReturnContent = &ReturnContent{Status: code, Body: ws.ReturnTarget}
		}
	}

	for li, wl := range ws.Locations {
		loc, err := wl.toLocationConfig()
		if err != nil {
			return nil, fmt.Errorf("location[%d]: %w", li, err)
		}
		s.Locations = append(s.Locations, loc)
	}

	return s, nil
}

func (wl *wireLocation) toLocationConfig() (*LocationConfig, error) {
	l := &LocationConfig{
		Pattern:        wl.Pattern,
		Root:           wl.Root,
		Alias:          wl.Alias,
		Index:          wl.Index,
		Autoindex:      wl.Autoindex,
		ProxyPass:      wl.ProxyPass,
		CustomHeaders:  wl.CustomHeaders,
		AllowedMethods: map[HttpMethod]bool{},
	}

	switch strings.ToLower(wl.MatchType) {
	case "", "prefix":
		l.MatchType = MatchPrefix
	case "exact":
		l.MatchType = MatchExact
	case "regex":
		l.MatchType = MatchRegexCaseSensitive
	case "regex_ci", "regex_i":
		l.MatchType = MatchRegexCaseInsensitive
	default:
		return nil, fmt.Errorf("unrecognized match type %q", wl.MatchType)
	}
	if l.MatchType == MatchRegexCaseSensitive || l.MatchType == MatchRegexCaseInsensitive {
		pattern := wl.Pattern
		if l.MatchType == MatchRegexCaseInsensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", wl.Pattern, err)
		}
		l.CompiledRegex = re
	}

	if len(wl.Methods) == 0 {
		l.AllowedMethods[MethodGet] = true
		l.AllowedMethods[MethodHead] = true
	} else {
		for _, m := range wl.Methods {
			hm := ParseHttpMethod(strings.ToUpper(m))
			if !hm.IsValid() {
				return nil, fmt.Errorf("unrecognized method %q", m)
			}
			l.AllowedMethods[hm] = true
		}
	}

	for _, tf := range wl.TryFiles {
		l.TryFiles = append(l.TryFiles, TryFilesEntry{Pattern: tf})
	}

	var err error
	l.ClientMaxBodySize, err = sizeOrDefault(wl.ClientMaxBodySize, 0)
	if err != nil {
		return nil, err
	}
	l.ClientBodyBufferSize, err = sizeOrDefault(wl.ClientBodyBufferSize, 8*KB)
	if err != nil {
		return nil, err
	}
	l.ErrorPages, err = errorPageMap(wl.ErrorPages)
	if err != nil {
		return nil, err
	}

	if wl.ReturnStatus != 0 {
		code, err := NewErrorCode(wl.ReturnStatus)
		if err != nil {
			return nil, err
		}
		if code.IsRedirection() {
			l.ReturnRedirect = &ReturnRedirect{Status: code, URI: wl.ReturnTarget}
		} else {
			l.ReturnContent = &ReturnContent{Status: code, Body: wl.ReturnTarget}
		}
	}

	if wl.Upload != nil {
		u := &UploadConfig{
			Directory:        wl.Upload.Directory,
			AllowedMIMETypes: wl.Upload.AllowedMIMETypes,
		}
		u.MaxFileSize, err = sizeOrDefault(wl.Upload.MaxFileSize, DefaultMaxBodySize)
		if err != nil {
			return nil, err
		}
		u.MaxTotalSize, err = sizeOrDefault(wl.Upload.MaxTotalSize, DefaultMaxBodySize)
		if err != nil {
			return nil, err
		}
		if wl.Upload.FilenamePattern != "" {
			re, err := regexp.Compile(wl.Upload.FilenamePattern)
			if err != nil {
				return nil, fmt.Errorf("invalid upload filename_pattern: %w", err)
			}
			u.FilenamePattern = re
		}
		l.Upload = u
	}

	if wl.Cgi != nil {
		cc := &CgiConfig{
			Extensions: wl.Cgi.Extensions,
			Timeout:    wl.Cgi.Timeout,
		}
		cc.MaxOutputBytes, err = sizeOrDefault(wl.Cgi.MaxOutputBytes, 0)
		if err != nil {
			return nil, err
		}
		l.Cgi = cc
	}

	return l, nil
}

func sizeOrDefault(s string, def Size) (Size, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return ParseSize(s)
}

func errorPageMap(raw map[string]string) (map[ErrorCode]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[ErrorCode]string, len(raw))
	for k, v := range raw {
		var n int
		if _, err := fmt.Sscanf(k, "%d", &n); err != nil {
			return nil, fmt.Errorf("invalid error_pages key %q: %w", k, err)
		}
		code, err := NewErrorCode(n)
		if err != nil {
			return nil, err
		}
		out[code] = v
	}
	return out, nil
}
