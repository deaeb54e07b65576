// Package config provides application-wide configuration.
// Sources, lowest to highest precedence: built-in defaults, an optional YAML file
// (EXPLORER_CONFIG), a .env file, and process environment variables.
// All fields except the JWT secret have safe defaults so the binary runs locally without setup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the gateway.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Providers ProvidersConfig `yaml:"providers"`
	Log       LogConfig       `yaml:"log"`
}

// HTTPConfig configures the listener and CORS policy.
type HTTPConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// DatabaseConfig points at the SQLite file (":memory:" for ephemeral runs).
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds token signing settings and the seeded admin account.
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	AdminUsername string        `yaml:"admin_username"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"` // admin is seeded only when set
}

// ProvidersConfig describes the two remote MCP tool providers.
// The API key is appended to each endpoint as the api_key query parameter.
type ProvidersConfig struct {
	Enabled               bool          `yaml:"enabled"`
	APIKey                string        `yaml:"api_key"`
	SearchEndpoint        string        `yaml:"search_endpoint"`
	ImageEndpoint         string        `yaml:"image_endpoint"`
	SearchProviderName    string        `yaml:"search_provider_name"`
	FallbackSearchLatency time.Duration `yaml:"fallback_search_latency"`
	FallbackImageLatency  time.Duration `yaml:"fallback_image_latency"`
}

// Live reports whether remote providers should be used for this process lifetime.
// Without an access credential the providers cannot be reached, so fallback mode is forced.
func (p ProvidersConfig) Live() bool {
	return p.Enabled && p.APIKey != ""
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

const (
	EnvConfigFile = "EXPLORER_CONFIG"

	envKeyHost           = "EXPLORER_HOST"
	envKeyPort           = "EXPLORER_PORT"
	envKeyAllowedOrigins = "CORS_ALLOWED_ORIGINS"
	envKeyDBPath         = "EXPLORER_DB_PATH"
	envKeyJWTSecret      = "JWT_SECRET"
	envKeyAccessTTL      = "JWT_ACCESS_TTL"
	envKeyRefreshTTL     = "JWT_REFRESH_TTL"
	envKeyAdminUsername  = "ADMIN_USERNAME"
	envKeyAdminEmail     = "ADMIN_EMAIL"
	envKeyAdminPassword  = "ADMIN_PASSWORD"
	envKeyMCPEnabled     = "MCP_ENABLED"
	envKeyMCPAPIKey      = "MCP_API_KEY"
	envKeySearchURL      = "MCP_SEARCH_URL"
	envKeyImageURL       = "MCP_IMAGE_URL"
	envKeySearchName     = "MCP_SEARCH_PROVIDER_NAME"
	envKeySearchLatency  = "FALLBACK_SEARCH_LATENCY"
	envKeyImageLatency   = "FALLBACK_IMAGE_LATENCY"
	envKeyLogLevel       = "LOG_LEVEL"
	envKeyLogFormat      = "LOG_FORMAT"
)

// ErrMissingJWTSecret is returned by Validate when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second, // image generation can be slow
			IdleTimeout:  60 * time.Second,
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
				"http://localhost:8000",
			},
		},
		Database: DatabaseConfig{Path: "./data/explorer.db"},
		Auth: AuthConfig{
			AccessTTL:     60 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			AdminUsername: "admin",
			AdminEmail:    "admin@aiexplorer.com",
		},
		Providers: ProvidersConfig{
			Enabled:               true,
			SearchEndpoint:        "https://server.smithery.ai/@nickclyde/duckduckgo-mcp-server/mcp",
			ImageEndpoint:         "https://server.smithery.ai/@falahgs/flux-imagegen-mcp-server/mcp",
			SearchProviderName:    "DuckDuckGo",
			FallbackSearchLatency: 500 * time.Millisecond,
			FallbackImageLatency:  time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// EXPLORER_CONFIG, a .env file in the working directory, and the environment.
func Load() (Config, error) {
	// A missing .env is the normal case in production.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// Validate checks settings that have no safe default.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.HTTP.Port)
	}
	if c.Providers.Live() && (c.Providers.SearchEndpoint == "" || c.Providers.ImageEndpoint == "") {
		return errors.New("config: provider endpoints are required when providers are enabled")
	}
	return nil
}

// mergeFile overlays values from a YAML file onto c. Keys absent from the file keep their current value.
func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTP.Host = envOr(envKeyHost, c.HTTP.Host)
	c.HTTP.Port = envIntOr(envKeyPort, c.HTTP.Port)
	if v := os.Getenv(envKeyAllowedOrigins); v != "" {
		c.HTTP.AllowedOrigins = splitList(v)
	}

	c.Database.Path = envOr(envKeyDBPath, c.Database.Path)

	c.Auth.JWTSecret = envOr(envKeyJWTSecret, c.Auth.JWTSecret)
	c.Auth.AccessTTL = envDurationOr(envKeyAccessTTL, c.Auth.AccessTTL)
	c.Auth.RefreshTTL = envDurationOr(envKeyRefreshTTL, c.Auth.RefreshTTL)
	c.Auth.AdminUsername = envOr(envKeyAdminUsername, c.Auth.AdminUsername)
	c.Auth.AdminEmail = envOr(envKeyAdminEmail, c.Auth.AdminEmail)
	c.Auth.AdminPassword = envOr(envKeyAdminPassword, c.Auth.AdminPassword)

	c.Providers.Enabled = envBoolOr(envKeyMCPEnabled, c.Providers.Enabled)
	c.Providers.APIKey = envOr(envKeyMCPAPIKey, c.Providers.APIKey)
	c.Providers.SearchEndpoint = envOr(envKeySearchURL, c.Providers.SearchEndpoint)
	c.Providers.ImageEndpoint = envOr(envKeyImageURL, c.Providers.ImageEndpoint)
	c.Providers.SearchProviderName = envOr(envKeySearchName, c.Providers.SearchProviderName)
	c.Providers.FallbackSearchLatency = envDurationOr(envKeySearchLatency, c.Providers.FallbackSearchLatency)
	c.Providers.FallbackImageLatency = envDurationOr(envKeyImageLatency, c.Providers.FallbackImageLatency)

	c.Log.Level = envOr(envKeyLogLevel, c.Log.Level)
	c.Log.Format = envOr(envKeyLogFormat, c.Log.Format)
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr parses an integer variable. Invalid numbers keep the fallback (graceful degradation).
func envIntOr(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

// envBoolOr accepts anything strconv.ParseBool does.
func envBoolOr(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

// envDurationOr accepts Go duration strings ("1500ms", "7h").
func envDurationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
