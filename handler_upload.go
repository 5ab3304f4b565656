package webserv

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// handlePost serves POST: upload routes parse a multipart upload,
// everything else dispatches to CGI when configured, otherwise 405.
func handlePost(ctx *HandlerContext, req *HttpRequest) (*HttpResponse, error) {
	loc, srv := ctx.Location, ctx.Server

	if loc.IsUploadRoute() {
		return handleUpload(ctx, req)
	}

	requestPath := req.Uri.Path
	resolved := resolveFilesystemPath(loc, srv, requestPath, loc.Pattern)
	if _, ok := cgiScriptFor(loc, resolved); ok {
		return dispatchCgi(ctx, req, resolved)
	}

	resp := resolveErrorPage(ctx.Fs, loc, srv, StatusMethodNotAllowed)
	resp.Headers.Set("Allow", strings.Join(loc.AllowedMethodNames(), ", "))
	return resp, nil
}

// safeUploadFilename sanitizes a client-supplied filename: strip directory
// components, keep only [A-Za-z0-9._-], substitute spaces with "_",
// defaulting to "upload_<epoch>" if the result is empty.
func safeUploadFilename(name string, epoch int64) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" || clean == "." || clean == ".." {
		return fmt.Sprintf("upload_%d", epoch)
	}
	return clean
}

// handleUpload parses a multipart/form-data body, extracts the first file
// part, validates it against loc.Upload, writes it under the upload
// directory, and responds 201 with a short HTML success page.
func handleUpload(ctx *HandlerContext, req *HttpRequest) (*HttpResponse, error) {
	loc, srv := ctx.Location, ctx.Server
	up := loc.Upload

	contentType := req.Headers.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusBadRequest), nil
	}
	boundary, ok := params["boundary"]
	if !ok || boundary == "" {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusBadRequest), nil
	}

	mr := multipart.NewReader(bytes.NewReader(req.Body), boundary)

	var (
		filename string
		data     []byte
		found    bool
	)
	var totalSize int64
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return resolveErrorPage(ctx.Fs, loc, srv, StatusBadRequest), nil
		}

		partBody, err := io.ReadAll(part)
		if err != nil {
			return resolveErrorPage(ctx.Fs, loc, srv, StatusBadRequest), nil
		}
		totalSize += int64(len(partBody))

		if found {
			continue // only the first file part is honored
		}
		if part.FileName() == "" {
			continue
		}

		if up.MaxFileSize > 0 && int64(len(partBody)) > up.MaxFileSize.Bytes() {
			return resolveErrorPage(ctx.Fs, loc, srv, StatusPayloadTooLarge), nil
		}
		if len(up.AllowedMIMETypes) > 0 {
			ct := part.Header.Get("Content-Type")
			if ct == "" {
				ct = http.DetectContentType(partBody)
			}
			if !containsMIME(up.AllowedMIMETypes, ct) {
				return resolveErrorPage(ctx.Fs, loc, srv, StatusBadRequest), nil
			}
		}
		if up.FilenamePattern != nil && !up.FilenamePattern.MatchString(part.FileName()) {
			return resolveErrorPage(ctx.Fs, loc, srv, StatusBadRequest), nil
		}

		filename = part.FileName()
		data = partBody
		found = true
	}

	if up.MaxTotalSize > 0 && totalSize > up.MaxTotalSize.Bytes() {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusPayloadTooLarge), nil
	}
	if !found {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusBadRequest), nil
	}

	safeName := safeUploadFilename(filename, uploadEpoch())

	if err := ctx.Fs.MkdirAll(up.Directory, 0o755); err != nil {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusInternalServerError), nil
	}

	destPath := filepath.Join(up.Directory, safeName)
	if err := writeUploadStreamed(ctx.Fs, destPath, data, loc.ClientBodyBufferSize); err != nil {
		return resolveErrorPage(ctx.Fs, loc, srv, StatusInternalServerError), nil
	}

	resp := NewHttpResponse(StatusCreated)
	resp.Headers.Set("Content-Type", "text/html; charset=utf-8")
	page := fmt.Sprintf(
		"<!DOCTYPE html>\n<html><head><title>201 Created</title></head>\n"+
			"<body><center><h1>Upload successful</h1><p>%s</p></center></body></html>\n",
		safeName)
	resp.Body = htmlMinifier.MinifyHTML([]byte(page))
	return resp, nil
}

// writeUploadStreamed writes data to destPath in bufSize-sized chunks
// (default 8 KiB when unset). The body is already fully in memory (the
// parser bounds it by maxRequestBytes, and Dispatch rejects anything over
// client_max_body_size); client_body_buffer_size bounds the individual
// write syscalls.
func writeUploadStreamed(fs Fs, destPath string, data []byte, bufSize Size) error {
	chunk := int(bufSize.Bytes())
	if chunk <= 0 {
		chunk = 8 * 1024
	}

	f, err := fs.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	for off := 0; off < len(data); off += chunk {
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		if _, err := f.Write(data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

func containsMIME(allowed []string, ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(strings.SplitN(ct, ";", 2)[0]))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimSpace(a)) == ct {
			return true
		}
	}
	return false
}

// uploadEpochFunc is a package variable (not a direct read of the real
// clock) so tests can deterministically substitute a fixed value.
var uploadEpochFunc = defaultUploadEpoch

func uploadEpoch() int64 { return uploadEpochFunc() }

func defaultUploadEpoch() int64 {
	return time.Now().Unix()
}
