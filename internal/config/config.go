// Package config loads the daemon configuration from config.yml and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	StorageMemory   = "in-memory"
	StoragePostgres = "postgres"
)

// Config holds values loaded from file or environment variables.
type Config struct {
	Port              string `mapstructure:"PORT"`
	Env               string `mapstructure:"APP_ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	StorageType       string `mapstructure:"STORAGE_TYPE"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	MigrationsDir     string `mapstructure:"MIGRATIONS_DIR"`
	RedisURL          string `mapstructure:"REDIS_URL"`
	RedisChannel      string `mapstructure:"REDIS_CHANNEL"`
	AllowedOrigins    string `mapstructure:"ALLOWED_ORIGINS"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	// TrustCallerHeader allows running in production without JWT_SECRET,
	// taking the caller from a header set by a gateway.
	TrustCallerHeader bool   `mapstructure:"TRUST_CALLER_HEADER"`
}

var keys = map[string]string{
	"PORT":                "8080",
	"APP_ENV":             "development",
	"LOG_LEVEL":           "info",
	"STORAGE_TYPE":        StorageMemory,
	"DATABASE_URL":        "",
	"MIGRATIONS_DIR":      "migrations",
	"REDIS_URL":           "",
	"REDIS_CHANNEL":       "registry:operations",
	"ALLOWED_ORIGINS":     "*",
	"JWT_SECRET":          "",
	"TRUST_CALLER_HEADER": "false",
}

// Load reads config.yml from the working directory (if present) and the
// environment, which takes precedence.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	for key, def := range keys {
		v.SetDefault(key, def)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch c.StorageType {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType)
	}
	if c.isProduction() {
		if c.JWTSecret == "" && !c.TrustCallerHeader {
			return errors.New("JWT_SECRET is required in production unless TRUST_CALLER_HEADER is set")
		}
		if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
	}
	return nil
}

func (c *Config) isProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
