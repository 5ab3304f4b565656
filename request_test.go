package webserv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostPrefersAbsoluteUriHost(t *testing.T) {
	req := NewHttpRequest()
	req.Uri = Uri{Scheme: "http", Host: "upstream.internal", Path: "/"}
	req.Headers.Set("Host", "ignored.example")
	assert.Equal(t, "upstream.internal", req.Host())
}

func TestHostFallsBackToHeaderStrippingPort(t *testing.T) {
	req := NewHttpRequest()
	req.Uri = Uri{Path: "/"}
	req.Headers.Set("Host", "example.com:8080")
	assert.Equal(t, "example.com", req.Host())
}

func TestHostPreservesIPv6Brackets(t *testing.T) {
	req := NewHttpRequest()
	req.Uri = Uri{Path: "/"}
	req.Headers.Set("Host", "[::1]:8080")
	assert.Equal(t, "[::1]", req.Host())
}

func TestResolveKeepAliveHttp11DefaultsToKeepAlive(t *testing.T) {
	req := NewHttpRequest()
	req.Version = HTTP11
	assert.True(t, req.ResolveKeepAlive())
}

func TestResolveKeepAliveHttp11HonorsConnectionClose(t *testing.T) {
	req := NewHttpRequest()
	req.Version = HTTP11
	req.ConnectionHeader = "close"
	assert.False(t, req.ResolveKeepAlive())
}

func TestResolveKeepAliveHttp10DefaultsToClose(t *testing.T) {
	req := NewHttpRequest()
	req.Version = HTTP10
	assert.False(t, req.ResolveKeepAlive())
}

func TestResolveKeepAliveHttp10HonorsConnectionKeepAlive(t *testing.T) {
	req := NewHttpRequest()
	req.Version = HTTP10
	req.ConnectionHeader = "keep-alive"
	assert.True(t, req.ResolveKeepAlive())
}
