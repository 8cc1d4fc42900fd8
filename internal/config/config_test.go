package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MUTATIONS_RUNTIME_MODE", "MUTATIONS_API_URL", "MUTATIONS_REQUEST_TIMEOUT",
		"MUTATIONS_MOCK_SEED", "MUTATIONS_PAGE_SIZE", "MUTATIONS_PAGE_CACHE_TTL",
		"LOG_ENV", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ModeAuto, c.Runtime.Mode)
	require.Equal(t, 20, c.Store.PageSize)
	require.True(t, c.ReloadAfterCreate())
	require.Equal(t, "dev", c.Log.Env)
	require.Equal(t, "info", c.Log.Level)
	require.Equal(t, ":8787", c.Sandbox.Addr)
	require.NoError(t, c.Validate())
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
runtime:
  mode: http
api:
  base_url: http://localhost:8080/api
  request_timeout: 5s
store:
  page_size: 50
  reload_after_create: false
cache:
  page_ttl: 30s
log:
  env: prod
  level: debug
sandbox:
  latency: 100ms
  fail: rate=0.1,code=503
metrics:
  enabled: true
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ModeHTTP, c.Runtime.Mode)
	require.Equal(t, "http://localhost:8080/api", c.API.BaseURL)
	require.Equal(t, 5*time.Second, c.API.RequestTimeout)
	require.Equal(t, 50, c.Store.PageSize)
	require.False(t, c.ReloadAfterCreate())
	require.Equal(t, 30*time.Second, c.Cache.PageTTL)
	require.Equal(t, "prod", c.Log.Env)
	require.Equal(t, 100*time.Millisecond, c.Sandbox.Latency)
	require.Equal(t, "rate=0.1,code=503", c.Sandbox.Fail)
	require.True(t, c.Metrics.Enabled)
	require.NoError(t, c.Validate())
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "runtime:\n  mode: mock\nstore:\n  page_size: 10\n")
	t.Setenv("MUTATIONS_RUNTIME_MODE", "HTTP")
	t.Setenv("MUTATIONS_API_URL", "http://api.example.com")
	t.Setenv("MUTATIONS_PAGE_SIZE", "7")
	t.Setenv("MUTATIONS_PAGE_CACHE_TTL", "1m")
	t.Setenv("LOG_LEVEL", "WARN")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ModeHTTP, c.Runtime.Mode)
	require.Equal(t, "http://api.example.com", c.API.BaseURL)
	require.Equal(t, 7, c.Store.PageSize)
	require.Equal(t, time.Minute, c.Cache.PageTTL)
	require.Equal(t, "warn", c.Log.Level)
}

func TestInvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MUTATIONS_PAGE_SIZE", "many")
	_, err := Load("")
	require.ErrorContains(t, err, "MUTATIONS_PAGE_SIZE")
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Runtime.Mode = ModeHTTP
	require.ErrorContains(t, c.Validate(), "api.base_url is required")

	c = Default()
	c.Runtime.Mode = "grpc"
	require.ErrorContains(t, c.Validate(), "runtime.mode")

	c = Default()
	c.API.BaseURL = "localhost:8080"
	require.ErrorContains(t, c.Validate(), "absolute URL")

	c = Default()
	c.Store.PageSize = -1
	require.ErrorContains(t, c.Validate(), "store.page_size")
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, ".env", "MUTATIONS_MOCK_SEED=/tmp/seed.yaml\n")
	t.Setenv("MUTATIONS_MOCK_SEED", "")
	require.NoError(t, os.Unsetenv("MUTATIONS_MOCK_SEED"))

	LoadDotEnv(path)
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/seed.yaml", c.Mock.Seed)
}
