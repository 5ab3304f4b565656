package webserv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleToml = `
worker_processes = 2
keepalive_timeout = 30

[[server]]
listen = ["8080"]
server_name = ["example.com"]
root = "/var/www"

[[server.location]]
pattern = "/"
match = "prefix"
methods = ["GET", "HEAD"]

[[server.location]]
pattern = "/upload"
match = "exact"
methods = ["POST"]

[server.location.upload]
directory = "/var/www/uploads"
max_file_size = "5M"
`

func writeTempConfig(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigFileTomlRoundTrip(t *testing.T) {
	path := writeTempConfig(t, "webserv.toml", sampleToml)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	require.Len(t, cfg.Servers, 1)
	srv := cfg.Servers[0]
	assert.Equal(t, []string{"example.com"}, srv.ServerNames)
	assert.Equal(t, 30, cfg.KeepAliveTimeout)
	require.Len(t, srv.Locations, 2)

	root := srv.Locations[0]
	assert.Equal(t, MatchPrefix, root.MatchType)
	assert.True(t, root.AllowsMethod(MethodGet))

	upload := srv.Locations[1]
	require.NotNil(t, upload.Upload)
	assert.Equal(t, "/var/www/uploads", upload.Upload.Directory)
	assert.Equal(t, 5*MB, upload.Upload.MaxFileSize)
	assert.True(t, upload.IsUploadRoute())
}

func TestLoadConfigFileRejectsUnknownExtension(t *testing.T) {
	path := writeTempConfig(t, "webserv.conf", sampleToml)

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}

func TestLoadConfigFileRejectsInvalidToml(t *testing.T) {
	path := writeTempConfig(t, "broken.toml", "this is not [ valid toml")

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}

func TestLoadConfigFileYaml(t *testing.T) {
	yamlSrc := `
server:
  - listen: ["80"]
    root: /srv
    location:
      - pattern: "/"
        match: prefix
`
	path := writeTempConfig(t, "webserv.yaml", yamlSrc)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, "/srv", cfg.Servers[0].Root)
}

func TestLoadConfigFileServersInheritGlobalErrorPages(t *testing.T) {
	src := `
[error_pages]
404 = "/errors/404.html"
500 = "/errors/500.html"

[[server]]
listen = ["8080"]
root = "/var/www"

[server.error_pages]
404 = "/custom/404.html"

[[server.location]]
pattern = "/"
match = "prefix"
`
	path := writeTempConfig(t, "webserv.toml", src)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 1)

	pages := cfg.Servers[0].ErrorPages
	assert.Equal(t, "/custom/404.html", pages[StatusNotFound], "server override wins")
	assert.Equal(t, "/errors/500.html", pages[StatusInternalServerError], "global entry is inherited")
}

func TestLoadIniScalarsDecodesViaMapstructure(t *testing.T) {
	iniSrc := "worker_processes = 4\nkeepalive_timeout = 45\naccess_log = /var/log/webserv/access.log\n"
	path := writeTempConfig(t, "webserv.ini", iniSrc)

	var wc wireConfig
	require.NoError(t, loadIniScalars(path, &wc))

	assert.Equal(t, 4, wc.WorkerProcesses)
	assert.Equal(t, 45, wc.KeepAliveTimeout)
	assert.Equal(t, "/var/log/webserv/access.log", wc.AccessLog)
}

func TestDecodeMapExercisesMapstructurePath(t *testing.T) {
	var wc wireConfig
	err := decodeMap(map[string]interface{}{
		"worker_processes": "4",
		"keepalive_timeout": 20,
	}, &wc)
	require.NoError(t, err)
	assert.Equal(t, 4, wc.WorkerProcesses)
	assert.Equal(t, 20, wc.KeepAliveTimeout)
}
