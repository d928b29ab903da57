package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "phigros.db", cfg.Store.DatabasePath)
	assert.Equal(t, 15, cfg.Fetcher.TimeoutSecs)
	assert.Equal(t, int64(64<<20), cfg.Fetcher.MaxBlobBytes)
	assert.NotEmpty(t, cfg.Fetcher.CN.BaseURL)
	assert.NotEmpty(t, cfg.Fetcher.Global.BaseURL)
	assert.Equal(t, 300, cfg.QRAuth.BusinessTTLSecs)
	assert.Equal(t, 30, cfg.QRAuth.OuterTTLMinutes)
	assert.Equal(t, 10000, cfg.QRAuth.MaxCacheEntries)
	assert.InDelta(t, 5.0, cfg.OpenAPI.RateLimitRPS, 0.001)
	assert.Equal(t, 10, cfg.OpenAPI.RateLimitBurst)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
server:
  port: 9090
identity:
  salt: "test-salt-value"
store:
  database_path: "/tmp/custom.db"
fetcher:
  cn:
    base_url: "https://example.test/1.1"
    app_id: "app-id"
    app_key: "app-key"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test-salt-value", cfg.Identity.Salt)
	assert.Equal(t, "/tmp/custom.db", cfg.Store.DatabasePath)
	assert.Equal(t, "https://example.test/1.1", cfg.Fetcher.CN.BaseURL)
	assert.Equal(t, "app-id", cfg.Fetcher.CN.AppID)
	// Defaults still apply for unset values.
	assert.Equal(t, 10000, cfg.QRAuth.MaxCacheEntries)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PHIGROS_LOG_LEVEL", "warn")
	t.Setenv("PHIGROS_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validServeConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Store:    StoreConfig{DatabasePath: "phigros.db"},
		Identity: IdentityConfig{Salt: "salt"},
		Fetcher:  FetcherConfig{CN: RegionConfig{BaseURL: "https://example.test"}},
		QRAuth:   QRAuthConfig{MaxCacheEntries: 100},
	}
}

func TestValidateServe_AllPresent(t *testing.T) {
	assert.NoError(t, validServeConfig().Validate("serve"))
}

func TestValidateServe_MissingSalt(t *testing.T) {
	cfg := validServeConfig()
	cfg.Identity.Salt = ""

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity.salt is required")
}

func TestValidateServe_NoFetcherBaseURL(t *testing.T) {
	cfg := validServeConfig()
	cfg.Fetcher = FetcherConfig{}

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetcher.cn.base_url")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validServeConfig()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateMigrate_RequiresDatabasePath(t *testing.T) {
	err := (&Config{}).Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_path")
}

func TestValidateMigrate_WithDatabasePath(t *testing.T) {
	cfg := &Config{Store: StoreConfig{DatabasePath: "phigros.db"}, QRAuth: QRAuthConfig{MaxCacheEntries: 1}}
	assert.NoError(t, cfg.Validate("migrate"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validServeConfig().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateServe_MaxCacheEntriesBelowOne(t *testing.T) {
	cfg := validServeConfig()
	cfg.QRAuth.MaxCacheEntries = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qrauth.max_cache_entries must be >= 1")
}
