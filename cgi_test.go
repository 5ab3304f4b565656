package webserv

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testdataPath(t *testing.T, rel string) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("testdata", rel))
	require.NoError(t, err)
	return abs
}

func TestCgiExecutorRunsEchoScript(t *testing.T) {
	executor := NewCgiExecutor(nil)
	req := &CgiRequest{
		ScriptPath: testdataPath(t, "cgi/echo.sh"),
		Env:        []string{"REQUEST_METHOD=GET", "QUERY_STRING=a=1", "PATH=/bin:/usr/bin"},
		Timeout:    5 * time.Second,
		MaxOutput:  defaultCgiMaxOutputBytes.Bytes(),
	}

	ctx := executor.Execute(req)
	require.NoError(t, ctx.Err)
	assert.False(t, ctx.TimedOut)
	assert.Equal(t, 0, ctx.ExitCode)
	assert.Contains(t, string(ctx.Stdout), "method=GET query=a=1")
}

func TestCgiExecutorPipesStdin(t *testing.T) {
	executor := NewCgiExecutor(nil)
	req := &CgiRequest{
		ScriptPath: testdataPath(t, "cgi/echo.sh"),
		Env:        []string{"REQUEST_METHOD=POST", "PATH=/bin:/usr/bin"},
		Body:       []byte("hello-stdin"),
		Timeout:    5 * time.Second,
		MaxOutput:  defaultCgiMaxOutputBytes.Bytes(),
	}

	ctx := executor.Execute(req)
	require.NoError(t, ctx.Err)
	assert.Contains(t, string(ctx.Stdout), "body=hello-stdin")
}

func TestCgiExecutorTimesOut(t *testing.T) {
	executor := NewCgiExecutor(nil)
	req := &CgiRequest{
		ScriptPath: testdataPath(t, "cgi/sleep.sh"),
		Env:        []string{"PATH=/bin:/usr/bin"},
		Timeout:    100 * time.Millisecond,
		MaxOutput:  defaultCgiMaxOutputBytes.Bytes(),
	}

	ctx := executor.Execute(req)
	assert.True(t, ctx.TimedOut)
}

func TestCgiExecutorReportsNonZeroExit(t *testing.T) {
	executor := NewCgiExecutor(nil)
	req := &CgiRequest{
		ScriptPath: testdataPath(t, "cgi/fail.sh"),
		Env:        []string{"PATH=/bin:/usr/bin"},
		Timeout:    5 * time.Second,
		MaxOutput:  defaultCgiMaxOutputBytes.Bytes(),
	}

	ctx := executor.Execute(req)
	require.NoError(t, ctx.Err)
	assert.Equal(t, 7, ctx.ExitCode)
	assert.Contains(t, string(ctx.Stderr), "boom")
}

func TestRunCgiEndToEnd(t *testing.T) {
	executor := NewCgiExecutor(nil)
	loc := &LocationConfig{
		Pattern: "/cgi-bin",
		Root:    testdataPath(t, "cgi"),
		Cgi:     &CgiConfig{Extensions: map[string]string{".sh": ""}},
	}
	srv := &ServerConfig{Root: testdataPath(t, "cgi")}

	req := NewHttpRequest()
	req.Method = MethodGet
	req.Uri = Uri{Path: "/cgi-bin/echo.sh", RawQuery: "x=1"}
	req.RawTarget = "/cgi-bin/echo.sh?x=1"
	req.Headers.Set("Host", "example.com")

	resp, err := RunCgi(executor, req, testdataPath(t, "cgi/echo.sh"), "", "127.0.0.1", loc, srv, "example.com", 8080)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "text/plain", resp.Headers.Get("Content-Type"))
	assert.Contains(t, string(resp.Body), "query=x=1")
}

func TestRunCgiTimeoutMapsToGatewayTimeout(t *testing.T) {
	executor := NewCgiExecutor(nil)
	loc := &LocationConfig{
		Pattern: "/cgi-bin",
		Root:    testdataPath(t, "cgi"),
		Cgi:     &CgiConfig{Extensions: map[string]string{".sh": ""}, Timeout: 1},
	}
	srv := &ServerConfig{Root: testdataPath(t, "cgi")}

	req := NewHttpRequest()
	req.Method = MethodGet
	req.Uri = Uri{Path: "/cgi-bin/sleep.sh"}
	req.Headers.Set("Host", "example.com")

	_, err := RunCgi(executor, req, testdataPath(t, "cgi/sleep.sh"), "", "127.0.0.1", loc, srv, "example.com", 8080)
	require.Error(t, err)
	he, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindGatewayTimeout, he.Kind)
	assert.Equal(t, StatusGatewayTimeout, he.Kind.Status())
}

func TestParseCgiResponseDefaultsStatusAndContentType(t *testing.T) {
	raw := []byte("X-Custom: yes\r\n\r\nhello body")
	resp, err := ParseCgiResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "text/html", resp.ContentType)
	assert.Equal(t, "hello body", string(resp.Body))
}

func TestParseCgiResponseHonorsStatusHeader(t *testing.T) {
	raw := []byte("Status: 404 Not Found\r\nContent-Type: text/plain\r\n\r\nnope")
	resp, err := ParseCgiResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, resp.Status)
	assert.Equal(t, "text/plain", resp.ContentType)
}

func TestParseCgiResponseLocationImpliesFound(t *testing.T) {
	raw := []byte("Location: /elsewhere\r\n\r\n")
	resp, err := ParseCgiResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, StatusFound, resp.Status)
	assert.Equal(t, "/elsewhere", resp.Location)
}

func TestParseCgiResponseRejectsMissingSeparator(t *testing.T) {
	_, err := ParseCgiResponse([]byte("no separator here"))
	assert.Error(t, err)
}

func TestBuildCgiRequestSetsCoreEnv(t *testing.T) {
	req := NewHttpRequest()
	req.Method = MethodGet
	req.Uri = Uri{Path: "/cgi-bin/echo.sh", RawQuery: "a=1"}
	req.RawTarget = "/cgi-bin/echo.sh?a=1"
	req.Headers.Set("Host", "example.com")
	req.Headers.Set("X-Custom", "val")

	loc := &LocationConfig{Root: "/srv/cgi"}
	srv := &ServerConfig{Root: "/srv/cgi"}

	cr := BuildCgiRequest(req, "/srv/cgi/echo.sh", "", "127.0.0.1", loc, srv, "example.com", 8080)

	env := map[string]bool{}
	for _, kv := range cr.Env {
		env[kv] = true
	}
	assert.True(t, env["REQUEST_METHOD=GET"])
	assert.True(t, env["QUERY_STRING=a=1"])
	assert.True(t, env["HTTP_X_CUSTOM=val"])
	assert.True(t, env["SERVER_NAME=example.com"])
}

func TestIsValidEnvNameRejectsBadChars(t *testing.T) {
	assert.True(t, isValidEnvName("HTTP_X_CUSTOM"))
	assert.False(t, isValidEnvName("HTTP-X-CUSTOM"))
	assert.False(t, isValidEnvName(""))
}
