package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Fetcher  FetcherConfig  `yaml:"fetcher" mapstructure:"fetcher"`
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`
	QRAuth   QRAuthConfig   `yaml:"qrauth" mapstructure:"qrauth"`
	OpenAPI  OpenAPIConfig  `yaml:"openapi" mapstructure:"openapi"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port                int `yaml:"port" mapstructure:"port"`
	ReadTimeoutSecs     int `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs    int `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	ShutdownTimeoutSecs int `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the embedded leaderboard database.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`
}

// CatalogConfig points at the chart-constant CSV and alias YAML files
// the catalog loads at startup and the catalog reload command validates.
type CatalogConfig struct {
	ConstantsCSVPath string `yaml:"constants_csv_path" mapstructure:"constants_csv_path"`
	AliasesYAMLPath  string `yaml:"aliases_yaml_path" mapstructure:"aliases_yaml_path"`
}

// FetcherConfig configures upstream save retrieval.
type FetcherConfig struct {
	CN           RegionConfig `yaml:"cn" mapstructure:"cn"`
	Global       RegionConfig `yaml:"global" mapstructure:"global"`
	TimeoutSecs  int          `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBlobBytes int64        `yaml:"max_blob_bytes" mapstructure:"max_blob_bytes"`
}

// RegionConfig holds one region's upstream connection parameters.
type RegionConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	AppID   string `yaml:"app_id" mapstructure:"app_id"`
	AppKey  string `yaml:"app_key" mapstructure:"app_key"`
}

// IdentityConfig configures pseudonymous user-key derivation.
type IdentityConfig struct {
	Salt string `yaml:"salt" mapstructure:"salt"`
}

// QRAuthConfig holds tuning values for the QR device-authorization flow.
// Validate checks MaxCacheEntries; the qrauth service does not read these
// values and runs on its own built-in TTL and cache capacity.
type QRAuthConfig struct {
	BusinessTTLSecs int `yaml:"business_ttl_secs" mapstructure:"business_ttl_secs"`
	OuterTTLMinutes int `yaml:"outer_ttl_minutes" mapstructure:"outer_ttl_minutes"`
	MaxCacheEntries int `yaml:"max_cache_entries" mapstructure:"max_cache_entries"`
}

// OpenAPIConfig configures the third-party read-only API surface.
type OpenAPIConfig struct {
	ServerSecret   string  `yaml:"server_secret" mapstructure:"server_secret"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// Validate checks required configuration fields based on run mode.
// Supported modes: "serve", "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Identity.Salt == "" {
			errs = append(errs, "identity.salt is required")
		}
		if c.Fetcher.CN.BaseURL == "" && c.Fetcher.Global.BaseURL == "" {
			errs = append(errs, "at least one of fetcher.cn.base_url or fetcher.global.base_url is required")
		}
	case "migrate":
		if c.Store.DatabasePath == "" {
			errs = append(errs, "store.database_path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.DatabasePath == "" {
		errs = append(errs, "store.database_path is required")
	}
	if c.QRAuth.MaxCacheEntries < 1 {
		errs = append(errs, "qrauth.max_cache_entries must be >= 1")
	}

	if len(errs) > 0 {
		return eris.New("config: validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PHIGROS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_secs", 10)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.database_path", "phigros.db")
	v.SetDefault("catalog.constants_csv_path", "data/charts.csv")
	v.SetDefault("catalog.aliases_yaml_path", "data/aliases.yaml")
	v.SetDefault("fetcher.timeout_secs", 15)
	v.SetDefault("fetcher.max_blob_bytes", 64<<20)
	v.SetDefault("fetcher.cn.base_url", "https://rak3ffdi.cloud.tds1.tapapis.cn/1.1")
	v.SetDefault("fetcher.global.base_url", "https://rak3ffdi.cloud.tds1.tapapis.com/1.1")
	v.SetDefault("qrauth.business_ttl_secs", 300)
	v.SetDefault("qrauth.outer_ttl_minutes", 30)
	v.SetDefault("qrauth.max_cache_entries", 10000)
	v.SetDefault("openapi.rate_limit_rps", 5.0)
	v.SetDefault("openapi.rate_limit_burst", 10)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
