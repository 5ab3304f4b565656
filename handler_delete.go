package webserv

import "path/filepath"

// handleDelete resolves the resource path (upload locations resolve
// relative to the upload directory, others relative to root), then
// responds 404/403/204/500 depending on what's there.
func handleDelete(ctx *HandlerContext, req *HttpRequest) (*HttpResponse, error) {
	loc, srv := ctx.Location, ctx.Server

	var resolved string
	if loc.Upload != nil {
		rest := relativeToPattern(req.Uri.Path, loc.Pattern)
		resolved = filepath.Join(loc.Upload.Directory, rest)
	} else {
		resolved = resolveFilesystemPath(loc, srv, req.Uri.Path, loc.Pattern)
	}

	info, exists := statExists(ctx.Fs, resolved)
	if !exists {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusNotFound), nil
	}
	if info.IsDir() {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusForbidden), nil
	}

	if err := ctx.Fs.Remove(resolved); err != nil {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusInternalServerError), nil
	}

	return NewHttpResponse(StatusNoContent), nil
}

func relativeToPattern(requestPath, pattern string) string {
	rest := requestPath
	if len(rest) >= len(pattern) && rest[:len(pattern)] == pattern {
		rest = rest[len(pattern):]
	}
	for len(rest) > 0 && rest[0] == '/' {
		rest = rest[1:]
	}
	return rest
}
