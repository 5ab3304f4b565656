package webserv

import (
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
)

// handleGet serves GET/HEAD: try_files resolution, directory
// index/autoindex, CGI dispatch, and static file serving, in that order.
func handleGet(ctx *HandlerContext, req *HttpRequest) (*HttpResponse, error) {
	loc, srv := ctx.Location, ctx.Server
	requestPath := req.Uri.Path
	matchedPrefix := loc.Pattern

	resolved := resolveFilesystemPath(loc, srv, requestPath, matchedPrefix)

	if _, exists := statExists(ctx.Fs, resolved); !exists && len(loc.TryFiles) > 0 {
		resp, handled, err := tryFiles(ctx, req, requestPath)
		if handled {
			return resp, err
		}
	}

	info, exists := statExists(ctx.Fs, resolved)
	if !exists {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusNotFound), nil
	}

	if info.IsDir() {
		return serveDirectory(ctx, req, resolved, requestPath)
	}

	if ext, ok := cgiScriptFor(loc, resolved); ok {
		_ = ext
		return dispatchCgi(ctx, req, resolved)
	}

	return serveStaticFile(ctx, resolved)
}

// tryFiles iterates loc.TryFiles, substituting "$uri" with requestPath,
// stopping at the first pattern that resolves to an existing file, or at an
// "=NNN" terminal entry. handled is false when every entry was exhausted
// without a match (the 404 fallback is left to the caller).
func tryFiles(ctx *HandlerContext, req *HttpRequest, requestPath string) (*HttpResponse, bool, error) {
	loc, srv := ctx.Location, ctx.Server

	for _, entry := range loc.TryFiles {
		if status, ok := entry.IsTerminalStatus(); ok {
			return resolveErrorPage(ctx.Fs, loc, srv, status), true, nil
		}

		candidate := strings.ReplaceAll(entry.Pattern, "$uri", requestPath)

		if strings.HasPrefix(candidate, "@") {
			named := NamedLocation(srv.Locations, candidate)
			if named == nil {
				continue
			}
			namedResolved := resolveFilesystemPath(named, srv, requestPath, named.Pattern)
			if info, exists := statExists(ctx.Fs, namedResolved); exists && !info.IsDir() {
				resp, err := serveStaticFile(&HandlerContext{
					Fs: ctx.Fs, Cache: ctx.Cache, CgiExecutor: ctx.CgiExecutor,
					Logger: ctx.Logger, Server: srv, Location: named,
					ServerName: ctx.ServerName, ServerPort: ctx.ServerPort, RemoteAddr: ctx.RemoteAddr,
				}, namedResolved)
				return resp, true, err
			}
			continue
		}

		path := candidate
		if !filepath.IsAbs(path) {
			root := loc.Root
			if root == "" {
				root = srv.Root
			}
			path = filepath.Join(root, candidate)
		}
		if info, exists := statExists(ctx.Fs, path); exists && !info.IsDir() {
			resp, err := serveStaticFile(ctx, path)
			return resp, true, err
		}
	}
	return nil, false, nil
}

// serveDirectory tries each index file in order, falling back to autoindex
// or 403.
func serveDirectory(ctx *HandlerContext, req *HttpRequest, dir, requestPath string) (*HttpResponse, error) {
	loc, srv := ctx.Location, ctx.Server

	index := loc.Index
	if len(index) == 0 {
		index = srv.Index
	}
	for _, name := range index {
		candidate := filepath.Join(dir, name)
		if info, exists := statExists(ctx.Fs, candidate); exists && !info.IsDir() {
			if ext, ok := cgiScriptFor(loc, candidate); ok {
				_ = ext
				return dispatchCgi(ctx, req, candidate)
			}
			return serveStaticFile(ctx, candidate)
		}
	}

	if loc.Autoindex {
		isRoot := strings.TrimSuffix(requestPath, "/") == "" || dir == loc.Root || dir == srv.Root
		body, err := GenerateDirectoryListing(ctx.Fs, ctx.Cache, dir, requestPath, isRoot)
		if err != nil {
			return resolveErrorPage(ctx.Fs, loc, srv, StatusInternalServerError), nil
		}
		resp := NewHttpResponse(StatusOK)
		resp.Headers.Set("Content-Type", "text/html; charset=utf-8")
		resp.Body = body
		return resp, nil
	}

	return resolveErrorPage(ctx.Fs, loc, srv, StatusForbidden), nil
}

// serveStaticFile streams path's bytes into an HttpResponse, setting
// Content-Type (by extension, sniffing as a fallback) and Last-Modified
// from mtime.
func serveStaticFile(ctx *HandlerContext, path string) (*HttpResponse, error) {
	loc, srv := ctx.Location, ctx.Server

	info, exists := statExists(ctx.Fs, path)
	if !exists {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusNotFound), nil
	}
	if info.IsDir() {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusForbidden), nil
	}
	if !info.Mode().IsRegular() {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusForbidden), nil
	}

	f, err := ctx.Fs.Open(path)
	if err != nil {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusForbidden), nil
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusInternalServerError), nil
	}

	resp := NewHttpResponse(StatusOK)
	resp.Headers.Set("Content-Type", detectMimeType(path, body, ctx.MimeTypes))
	resp.Headers.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	resp.Body = body
	return resp, nil
}

// dispatchCgi builds and runs a CGI request for scriptPath, converting
// executor failures into the caller's error page (script missing/not
// executable -> 500, timeout -> 504).
func dispatchCgi(ctx *HandlerContext, req *HttpRequest, resolvedPath string) (*HttpResponse, error) {
	loc, srv := ctx.Location, ctx.Server

	scriptPath, pathInfo := splitScriptAndPathInfo(ctx.Fs, resolvedPath)
	remoteAddr := ctx.RemoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}

	resp, err := RunCgi(ctx.CgiExecutor, req, scriptPath, pathInfo, remoteAddr, loc, srv, ctx.ServerName, ctx.ServerPort)
	if err != nil {
		if he, ok := AsError(err); ok {
			return resolveErrorPage(ctx.Fs, loc, srv, he.Kind.Status()), nil
		}
		return resolveErrorPage(ctx.Fs, loc, srv, StatusInternalServerError), nil
	}
	return resp, nil
}
