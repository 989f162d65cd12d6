package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by cvapi.
const EnvPrefix = "CVAPI"

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN). SQLite paths and postgres:// URLs are both accepted.
	DatabaseURL string

	// Server bind address (host:port)
	ServerAddr string

	// Enable debug logging
	Debug bool

	// Log level (trace, debug, info, warn, error) and format (text or json)
	LogLevel  string
	LogFormat string

	// Allowed browser origins for CORS
	CORSOrigins []string

	JWT JWTConfig

	Observability ObservabilityConfig
}

// ObservabilityConfig controls OpenTelemetry export. An empty OTLPEndpoint
// disables it.
type ObservabilityConfig struct {
	OTLPEndpoint   string
	OTLPInsecure   bool
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// JWTConfig controls the tokens issued by /auth/login and /auth/refresh.
type JWTConfig struct {
	// Secret signs access tokens. Refresh tokens use a derived secret.
	Secret string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// RotateRefreshTokens issues a new refresh token on every refresh and
	// revokes the one that was presented.
	RotateRefreshTokens bool
}

// RefreshSecret returns the key used to sign refresh tokens.
func (c JWTConfig) RefreshSecret() string {
	return c.Secret + "_refresh"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "cvapi.db")
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)
	v.SetDefault("jwt.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("jwt.rotate_refresh_tokens", true)
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.service_name", "cvapi")
	v.SetDefault("otel.service_version", "dev")
	v.SetDefault("otel.environment", "development")
}

// Load reads configuration from the global viper instance. Environment
// variables (CVAPI_DATABASE_URL, CVAPI_JWT_SECRET, ...) take precedence over
// any config file the caller has already read.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v, applying defaults and env bindings.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("otel.endpoint", EnvPrefix+"_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")

	cfg := &Config{
		DatabaseURL: v.GetString("database_url"),
		ServerAddr:  v.GetString("server_addr"),
		Debug:       v.GetBool("debug"),
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
		CORSOrigins: splitList(v.GetStringSlice("cors_origins")),
		JWT: JWTConfig{
			Secret:              v.GetString("jwt.secret"),
			AccessTokenTTL:      v.GetDuration("jwt.access_token_ttl"),
			RefreshTokenTTL:     v.GetDuration("jwt.refresh_token_ttl"),
			RotateRefreshTokens: v.GetBool("jwt.rotate_refresh_tokens"),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint:   v.GetString("otel.endpoint"),
			OTLPInsecure:   v.GetBool("otel.insecure"),
			ServiceName:    v.GetString("otel.service_name"),
			ServiceVersion: v.GetString("otel.service_version"),
			Environment:    v.GetString("otel.environment"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.ServerAddr == "" {
		return fmt.Errorf("SERVER_ADDR is required")
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TOKEN_TTL must be positive, got %s", c.JWT.AccessTokenTTL)
	}
	if c.JWT.RefreshTokenTTL < c.JWT.AccessTokenTTL {
		return fmt.Errorf("JWT_REFRESH_TOKEN_TTL (%s) must not be shorter than JWT_ACCESS_TOKEN_TTL (%s)",
			c.JWT.RefreshTokenTTL, c.JWT.AccessTokenTTL)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// RequireSecret is called by commands that sign or verify tokens.
func (c *Config) RequireSecret() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("%s_JWT_SECRET is required", EnvPrefix)
	}
	return nil
}

// splitList accepts both YAML lists and a single comma separated env value.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
