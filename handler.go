package webserv

import (
	"path/filepath"
	"strings"
)

// HandlerContext bundles everything a handler needs to produce an
// HttpResponse for one request: the matched configuration, filesystem and
// CGI collaborators, and request-scoped facts the connection handler
// already resolved (remote address, server identity). There is no handler
// class hierarchy; Dispatch switches on the matched LocationConfig's
// fields directly.
type HandlerContext struct {
	Fs          Fs
	Cache       *listingCache
	CgiExecutor *CgiExecutor
	Logger      *Logger
	MimeTypes   map[string]string

	Server     *ServerConfig
	Location   *LocationConfig
	ServerName string
	ServerPort Port
	RemoteAddr string
}

// Dispatch runs the method/allow check, return directives, and body-size
// check, then the per-method handler, finally applying the location's
// custom response headers.
func Dispatch(ctx *HandlerContext, req *HttpRequest) (*HttpResponse, error) {
	loc := ctx.Location

	if !loc.AllowsMethod(req.Method) {
		resp := resolveErrorPage(ctx.Fs, loc, ctx.Server, StatusMethodNotAllowed)
		resp.Headers.Set("Allow", strings.Join(loc.AllowedMethodNames(), ", "))
		return resp, nil
	}

	if loc.ReturnRedirect != nil {
		return NewRedirectResponse(loc.ReturnRedirect.Status, loc.ReturnRedirect.URI), nil
	}
	if loc.ReturnContent != nil {
		resp := NewHttpResponse(loc.ReturnContent.Status)
		resp.Headers.Set("Content-Type", "text/html; charset=utf-8")
		resp.Body = []byte(loc.ReturnContent.Body)
		applyCustomHeaders(resp, loc)
		return resp, nil
	}

	effectiveMax := loc.EffectiveMaxBodySize(ctx.Server.ClientMaxBodySize)
	if effectiveMax > 0 && int64(len(req.Body)) > effectiveMax.Bytes() {
		return resolveErrorPage(ctx.Fs, loc, ctx.Server, StatusPayloadTooLarge), nil
	}

	var resp *HttpResponse
	var err error

	switch req.Method {
	case MethodGet, MethodHead:
		resp, err = handleGet(ctx, req)
	case MethodPost:
		resp, err = handlePost(ctx, req)
	case MethodDelete:
		resp, err = handleDelete(ctx, req)
	default:
		resp = resolveErrorPage(ctx.Fs, loc, ctx.Server, StatusMethodNotAllowed)
		resp.Headers.Set("Allow", strings.Join(loc.AllowedMethodNames(), ", "))
	}
	if err != nil {
		return nil, err
	}

	if req.Method == MethodHead {
		resp.SuppressBody = true
	}

	applyCustomHeaders(resp, loc)
	return resp, nil
}

// applyCustomHeaders sets loc's add_header directives on resp, after every
// other header has already been computed.
func applyCustomHeaders(resp *HttpResponse, loc *LocationConfig) {
	for name, value := range loc.CustomHeaders {
		resp.Headers.Set(name, value)
	}
}

// resolveFilesystemPath computes the resolved filesystem path for req's
// path under loc: alias substitution when set, otherwise root-joined.
// matchedPrefix is the portion of the request path
// already consumed by location matching (callers pass loc.Pattern); it is
// only consulted when alias is set.
func resolveFilesystemPath(loc *LocationConfig, srv *ServerConfig, requestPath, matchedPrefix string) string {
	root := loc.Root
	if root == "" {
		root = srv.Root
	}

	if loc.Alias != "" {
		rest := strings.TrimPrefix(requestPath, matchedPrefix)
		return filepath.Join(loc.Alias, rest)
	}
	return filepath.Join(root, requestPath)
}

// cgiScriptFor reports whether resolvedPath should be dispatched to CGI
// under loc: a CgiConfig is present and the
// resolved file's extension is one of its configured extensions, or the
// location itself is a regex location, in which case any resolved file is
// dispatched (with an interpreter only when its extension is mapped).
func cgiScriptFor(loc *LocationConfig, resolvedPath string) (string, bool) {
	if loc.Cgi == nil {
		return "", false
	}
	ext := extensionOf(resolvedPath)
	if _, ok := loc.Cgi.Extensions[ext]; ok {
		return ext, true
	}
	if loc.MatchType == MatchRegexCaseSensitive || loc.MatchType == MatchRegexCaseInsensitive {
		return ext, true
	}
	return "", false
}

// splitScriptAndPathInfo splits a resolved filesystem path at the first
// path component that is not itself a directory, treating everything past
// it as PATH_INFO, e.g. "/srv/cgi/a.py/extra" -> ("/srv/cgi/a.py",
// "/extra"). Used only for CGI dispatch.
func splitScriptAndPathInfo(fs Fs, resolvedPath string) (string, string) {
	parts := strings.Split(strings.TrimPrefix(resolvedPath, "/"), "/")
	cur := "/"
	for i, p := range parts {
		cur = filepath.Join(cur, p)
		if info, ok := statExists(fs, cur); ok && !info.IsDir() {
			if i == len(parts)-1 {
				return cur, ""
			}
			return cur, "/" + strings.Join(parts[i+1:], "/")
		}
	}
	return resolvedPath, ""
}
