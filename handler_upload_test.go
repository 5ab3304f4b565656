package webserv

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMultipartUpload(t *testing.T, fieldName, filename string, content []byte) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(fieldName, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return w.FormDataContentType(), buf.Bytes()
}

func uploadLocation() *LocationConfig {
	return &LocationConfig{
		Pattern:        "/upload",
		MatchType:      MatchExact,
		AllowedMethods: map[HttpMethod]bool{MethodPost: true},
		Upload: &UploadConfig{
			Directory:    "/uploads",
			MaxFileSize:  1 * MB,
			MaxTotalSize: 1 * MB,
		},
	}
}

func TestHandleUploadWritesFileAndReturns201(t *testing.T) {
	prev := uploadEpochFunc
	uploadEpochFunc = func() int64 { return 42 }
	defer func() { uploadEpochFunc = prev }()

	fs := newFakeFs()
	loc := uploadLocation()
	srv := &ServerConfig{Root: "/var/www"}
	ctx := newTestCtx(fs, loc, srv)

	contentType, body := buildMultipartUpload(t, "file", "report.pdf", []byte("pdf-bytes"))

	req := NewHttpRequest()
	req.Method = MethodPost
	req.Uri = Uri{Path: "/upload"}
	req.Headers.Set("Content-Type", contentType)
	req.Body = body

	resp, err := handleUpload(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, resp.Status)

	stored, err := fs.Open("/uploads/report.pdf")
	require.NoError(t, err)
	data := make([]byte, 64)
	n, _ := stored.Read(data)
	assert.Equal(t, "pdf-bytes", string(data[:n]))
}

func TestHandleUploadRejectsNonMultipartContentType(t *testing.T) {
	fs := newFakeFs()
	loc := uploadLocation()
	srv := &ServerConfig{Root: "/var/www"}
	ctx := newTestCtx(fs, loc, srv)

	req := NewHttpRequest()
	req.Method = MethodPost
	req.Uri = Uri{Path: "/upload"}
	req.Headers.Set("Content-Type", "application/json")
	req.Body = []byte(`{}`)

	resp, err := handleUpload(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusBadRequest, resp.Status)
}

func TestHandleUploadRejectsOversizedFile(t *testing.T) {
	fs := newFakeFs()
	loc := uploadLocation()
	loc.Upload.MaxFileSize = 4
	srv := &ServerConfig{Root: "/var/www"}
	ctx := newTestCtx(fs, loc, srv)

	contentType, body := buildMultipartUpload(t, "file", "big.bin", []byte("way more than four bytes"))

	req := NewHttpRequest()
	req.Method = MethodPost
	req.Uri = Uri{Path: "/upload"}
	req.Headers.Set("Content-Type", contentType)
	req.Body = body

	resp, err := handleUpload(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusPayloadTooLarge, resp.Status)
}

func TestHandleUploadRejectsMissingFilePart(t *testing.T) {
	fs := newFakeFs()
	loc := uploadLocation()
	srv := &ServerConfig{Root: "/var/www"}
	ctx := newTestCtx(fs, loc, srv)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("note", "no file here"))
	require.NoError(t, w.Close())

	req := NewHttpRequest()
	req.Method = MethodPost
	req.Uri = Uri{Path: "/upload"}
	req.Headers.Set("Content-Type", w.FormDataContentType())
	req.Body = buf.Bytes()

	resp, err := handleUpload(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusBadRequest, resp.Status)
}

func TestSafeUploadFilenameSanitizes(t *testing.T) {
	assert.Equal(t, "report.pdf", safeUploadFilename("report.pdf", 1))
	assert.Equal(t, "my_file.txt", safeUploadFilename("my file.txt", 1))
	assert.Equal(t, "passwd", safeUploadFilename("../../etc/passwd", 1))
	assert.Equal(t, "upload_7", safeUploadFilename("???", 7))
}
