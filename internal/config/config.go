package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the server configuration, loaded from environment variables
// and an optional .env file.
type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	ValkeyURL   string   `mapstructure:"VALKEY_URL"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Risk engine settings.
	AssessmentStore  string        `mapstructure:"ASSESSMENT_STORE"`
	AssessmentMaxAge time.Duration `mapstructure:"ASSESSMENT_MAX_AGE"`
	BulkWorkers      int           `mapstructure:"BULK_WORKERS"`
	FetchTimeout     time.Duration `mapstructure:"FETCH_TIMEOUT"`

	AuthIssuer   string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL  string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience string `mapstructure:"AUTH_AUDIENCE"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ASSESSMENT_STORE", "postgres")
	v.SetDefault("ASSESSMENT_MAX_AGE", "720h")
	v.SetDefault("BULK_WORKERS", 8)
	v.SetDefault("FETCH_TIMEOUT", "10s")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("VALKEY_URL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("ASSESSMENT_STORE")
	v.BindEnv("ASSESSMENT_MAX_AGE")
	v.BindEnv("BULK_WORKERS")
	v.BindEnv("FETCH_TIMEOUT")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production the
// server refuses to start without AUTH_ISSUER so that real JWT authentication
// is enforced on the dashboard endpoints.
func (c *Config) Validate() error {
	switch c.AssessmentStore {
	case "postgres", "valkey", "memory":
	default:
		return fmt.Errorf("ASSESSMENT_STORE must be \"postgres\", \"valkey\", or \"memory\", got %q", c.AssessmentStore)
	}
	if c.AssessmentStore == "valkey" && c.ValkeyURL == "" {
		return fmt.Errorf("VALKEY_URL is required when ASSESSMENT_STORE is \"valkey\"")
	}
	if c.AssessmentMaxAge <= 0 {
		return fmt.Errorf("ASSESSMENT_MAX_AGE must be positive, got %s", c.AssessmentMaxAge)
	}
	if c.BulkWorkers <= 0 {
		return fmt.Errorf("BULK_WORKERS must be positive, got %d", c.BulkWorkers)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	if c.IsProduction() && c.AuthIssuer == "" {
		return fmt.Errorf("AUTH_ISSUER is required in production")
	}
	return nil
}
