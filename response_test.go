package webserv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpResponseWriteToFillsDefaults(t *testing.T) {
	resp := NewHttpResponse(StatusOK)
	resp.Body = []byte("hello")

	var buf bytes.Buffer
	_, err := resp.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.True(t, strings.HasPrefix(raw, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, raw, "Content-Length: 5\r\n")
	assert.Contains(t, raw, "Server: webserv\r\n")
	assert.Contains(t, raw, "Date: ")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nhello"))
}

func TestHttpResponseWriteToSuppressesBodyForHead(t *testing.T) {
	resp := NewHttpResponse(StatusOK)
	resp.Body = []byte("hello")
	resp.SuppressBody = true

	var buf bytes.Buffer
	_, err := resp.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Content-Length: 5\r\n")
	assert.False(t, strings.HasSuffix(raw, "hello"))
}

func TestHttpResponseKeepAliveHeader(t *testing.T) {
	resp := NewHttpResponse(StatusOK)
	resp.KeepAlive(true)
	assert.Equal(t, "keep-alive", resp.Headers.Get("Connection"))

	resp.KeepAlive(false)
	assert.Equal(t, "close", resp.Headers.Get("Connection"))
}

func TestNewErrorResponseBuildsMinifiedPage(t *testing.T) {
	resp := NewErrorResponse(StatusNotFound)
	assert.Equal(t, StatusNotFound, resp.Status)
	assert.Equal(t, "text/html; charset=utf-8", resp.Headers.Get("Content-Type"))
	assert.Contains(t, string(resp.Body), "404")
}

func TestNewRedirectResponseSetsLocationAndBody(t *testing.T) {
	resp := NewRedirectResponse(StatusFound, "/new-place")
	assert.Equal(t, StatusFound, resp.Status)
	assert.Equal(t, "/new-place", resp.Headers.Get("Location"))
	assert.Contains(t, string(resp.Body), "/new-place")
}

func TestHeaderMapPreservesFirstSeenCasingAndOrder(t *testing.T) {
	h := NewHeaderMap()
	h.Add("X-Foo", "1")
	h.Add("x-foo", "2")
	h.Set("Content-Type", "text/plain")

	assert.Equal(t, []string{"1", "2"}, h.Values("X-FOO"))

	var names []string
	h.Each(func(name, value string) {
		if !containsName(names, name) {
			names = append(names, name)
		}
	})
	assert.Equal(t, []string{"X-Foo", "Content-Type"}, names)
}

func containsName(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func TestHeaderMapDel(t *testing.T) {
	h := NewHeaderMap()
	h.Set("X-Foo", "1")
	h.Del("x-foo")
	assert.False(t, h.Has("X-Foo"))
}
