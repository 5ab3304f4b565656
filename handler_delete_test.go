package webserv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deleteLocation(root string) *LocationConfig {
	return &LocationConfig{
		Pattern:        "/",
		MatchType:      MatchPrefix,
		Root:           root,
		AllowedMethods: map[HttpMethod]bool{MethodDelete: true},
	}
}

func TestHandleDeleteRemovesFile(t *testing.T) {
	fs := newFakeFs()
	fs.putFile("/var/www/a.txt", []byte("data"))

	loc := deleteLocation("/var/www")
	srv := &ServerConfig{Root: "/var/www"}
	ctx := newTestCtx(fs, loc, srv)

	req := NewHttpRequest()
	req.Method = MethodDelete
	req.Uri = Uri{Path: "/a.txt"}

	resp, err := handleDelete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusNoContent, resp.Status)

	_, err = fs.Stat("/var/www/a.txt")
	assert.Error(t, err)
}

func TestHandleDeleteReturns404ForMissing(t *testing.T) {
	fs := newFakeFs()
	loc := deleteLocation("/var/www")
	srv := &ServerConfig{Root: "/var/www"}
	ctx := newTestCtx(fs, loc, srv)

	req := NewHttpRequest()
	req.Method = MethodDelete
	req.Uri = Uri{Path: "/gone.txt"}

	resp, err := handleDelete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, resp.Status)
}

func TestHandleDeleteRefusesDirectory(t *testing.T) {
	fs := newFakeFs()
	fs.putDir("/var/www/sub")

	loc := deleteLocation("/var/www")
	srv := &ServerConfig{Root: "/var/www"}
	ctx := newTestCtx(fs, loc, srv)

	req := NewHttpRequest()
	req.Method = MethodDelete
	req.Uri = Uri{Path: "/sub"}

	resp, err := handleDelete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusForbidden, resp.Status)
}

func TestHandleDeleteResolvesUnderUploadDirectory(t *testing.T) {
	fs := newFakeFs()
	fs.putFile("/uploads/report.pdf", []byte("pdf"))

	loc := &LocationConfig{
		Pattern:        "/files",
		MatchType:      MatchPrefix,
		AllowedMethods: map[HttpMethod]bool{MethodDelete: true},
		Upload:         &UploadConfig{Directory: "/uploads"},
	}
	srv := &ServerConfig{Root: "/var/www"}
	ctx := newTestCtx(fs, loc, srv)

	req := NewHttpRequest()
	req.Method = MethodDelete
	req.Uri = Uri{Path: "/files/report.pdf"}

	resp, err := handleDelete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusNoContent, resp.Status)
}
