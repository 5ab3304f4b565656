package webserv

import (
	"path/filepath"
)

// resolveErrorPage picks the custom error page for status: the selected
// location's own error_page map, then the server's, then the engine's
// built-in minimal page. The URI named by error_page is resolved relative
// to the location root, then the server root, then treated as a
// filesystem-absolute path, and read as a static file; any failure along
// the way falls back to the next step, ending at the built-in page.
func resolveErrorPage(fs Fs, loc *LocationConfig, srv *ServerConfig, status ErrorCode) *HttpResponse {
	if loc != nil {
		if uri, ok := loc.ErrorPages[status]; ok {
			if resp := readErrorPageFile(fs, uri, loc.Root, srv.Root, status); resp != nil {
				return resp
			}
		}
	}
	if srv != nil {
		if uri, ok := srv.ErrorPages[status]; ok {
			if resp := readErrorPageFile(fs, uri, "", srv.Root, status); resp != nil {
				return resp
			}
		}
	}
	return NewErrorResponse(status)
}

// readErrorPageFile tries uri as a path relative to locationRoot, then
// serverRoot, then as an absolute filesystem path, returning the first one
// that stats as a readable regular file.
func readErrorPageFile(fs Fs, uri, locationRoot, serverRoot string, status ErrorCode) *HttpResponse {
	var candidates []string
	if locationRoot != "" {
		candidates = append(candidates, filepath.Join(locationRoot, uri))
	}
	if serverRoot != "" {
		candidates = append(candidates, filepath.Join(serverRoot, uri))
	}
	candidates = append(candidates, uri)

	for _, path := range candidates {
		info, err := fs.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		f, err := fs.Open(path)
		if err != nil {
			continue
		}
		body := make([]byte, info.Size())
		_, err = readFull(f, body)
		f.Close()
		if err != nil {
			continue
		}
		r := NewHttpResponse(status)
		r.Headers.Set("Content-Type", "text/html; charset=utf-8")
		r.Body = body
		return r
	}
	return nil
}

func readFull(f File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			if total == len(buf) {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
