package webserv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHttpVersion(t *testing.T) {
	v, err := ParseHttpVersion("HTTP/1.1")
	require.NoError(t, err)
	assert.Equal(t, HTTP11, v)

	v, err = ParseHttpVersion("HTTP/1.0")
	require.NoError(t, err)
	assert.Equal(t, HTTP10, v)
}

func TestParseHttpVersionRejectsMalformed(t *testing.T) {
	_, err := ParseHttpVersion("HTTP/x.y")
	assert.Error(t, err)

	_, err = ParseHttpVersion("garbage")
	assert.Error(t, err)
}

func TestHttpVersionIsSupported(t *testing.T) {
	assert.True(t, HTTP10.IsSupported())
	assert.True(t, HTTP11.IsSupported())
	assert.False(t, HTTP20.IsSupported())
}

func TestHttpVersionString(t *testing.T) {
	assert.Equal(t, "HTTP/1.1", HTTP11.String())
}
