// No t.Parallel(): env vars are process-global.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	EnvConfigFile, envKeyHost, envKeyPort, envKeyAllowedOrigins, envKeyDBPath,
	envKeyJWTSecret, envKeyAccessTTL, envKeyRefreshTTL, envKeyAdminUsername,
	envKeyAdminEmail, envKeyAdminPassword, envKeyMCPEnabled, envKeyMCPAPIKey,
	envKeySearchURL, envKeyImageURL, envKeySearchName, envKeySearchLatency,
	envKeyImageLatency, envKeyLogLevel, envKeyLogFormat,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 8000, cfg.HTTP.Port)
	assert.Equal(t, "DuckDuckGo", cfg.Providers.SearchProviderName)
	assert.Equal(t, 500*time.Millisecond, cfg.Providers.FallbackSearchLatency)
	assert.False(t, cfg.Providers.Live(), "no API key means fallback mode")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(envKeyPort, "9090")
	t.Setenv(envKeyJWTSecret, "s3cret")
	t.Setenv(envKeyAccessTTL, "15m")
	t.Setenv(envKeyMCPAPIKey, "key-123")
	t.Setenv(envKeySearchURL, "http://search.local/mcp")
	t.Setenv(envKeyAllowedOrigins, "https://a.example, https://b.example ,")
	t.Setenv(envKeyLogFormat, "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, "http://search.local/mcp", cfg.Providers.SearchEndpoint)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Providers.Live())
}

func TestLoad_InvalidNumbersKeepDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(envKeyPort, "eighty")
	t.Setenv(envKeyRefreshTTL, "a week")
	t.Setenv(envKeyMCPEnabled, "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.HTTP.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.True(t, cfg.Providers.Enabled)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "explorer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: 7000
database:
  path: /tmp/explorer-test.db
providers:
  enabled: false
  api_key: from-file
  fallback_search_latency: 10ms
log:
  level: debug
`), 0o600))

	t.Setenv(EnvConfigFile, path)
	t.Setenv(envKeyLogLevel, "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.Equal(t, "/tmp/explorer-test.db", cfg.Database.Path)
	assert.Equal(t, "from-file", cfg.Providers.APIKey)
	assert.False(t, cfg.Providers.Enabled)
	assert.False(t, cfg.Providers.Live())
	assert.Equal(t, 10*time.Millisecond, cfg.Providers.FallbackSearchLatency)
	assert.Equal(t, "warn", cfg.Log.Level, "env wins over file")
	// untouched keys keep defaults
	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)

	cfg.Auth.JWTSecret = "x"
	assert.NoError(t, cfg.Validate())

	cfg.HTTP.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.HTTP.Port = 8000
	cfg.Providers.APIKey = "k"
	cfg.Providers.ImageEndpoint = ""
	assert.Error(t, cfg.Validate())
}
