// Package config defines the top-level configuration for the matchcore
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MATCHCORE_* environment
// variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Strategy StrategyConfig `toml:"strategy"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the matching engine's business-rule limits. Prices and
// quantities are decimal strings so no precision is lost in transit.
type EngineConfig struct {
	Instrument  string `toml:"instrument"`
	MinPrice    string `toml:"min_price"`
	MaxPrice    string `toml:"max_price"`
	MinQuantity string `toml:"min_quantity"`
	MaxQuantity string `toml:"max_quantity"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls cold-storage archival of aged trades and order
// events.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// StrategyConfig holds market-making strategy parameters.
type StrategyConfig struct {
	Enabled         bool           `toml:"enabled"`
	Name            string         `toml:"name"`
	TraderID        string         `toml:"trader_id"`
	QuoteSize       float64        `toml:"quote_size"`
	HalfSpread      float64        `toml:"half_spread"`
	SkewPerUnit     float64        `toml:"skew_per_unit"`
	MaxPosition     float64        `toml:"max_position"`
	Capital         float64        `toml:"capital"`
	RequoteInterval duration       `toml:"requote_interval"`
	DepthLevels     int            `toml:"depth_levels"`
	Params          map[string]any `toml:"params"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled       bool     `toml:"enabled"`
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	APIKey        string   `toml:"api_key"`
	RatePerSecond int      `toml:"rate_per_second"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			Instrument:  "DEMO-USD",
			MinPrice:    "0.01",
			MaxPrice:    "1000000.00",
			MinQuantity: "0.01",
			MaxQuantity: "1000000.00",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "matchcore",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "matchcore-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 30,
			Interval:      duration{6 * time.Hour},
		},
		Strategy: StrategyConfig{
			Enabled:         false,
			Name:            "spread_quoter",
			TraderID:        "mm-internal",
			QuoteSize:       10,
			HalfSpread:      0.25,
			SkewPerUnit:     0.01,
			MaxPosition:     100,
			Capital:         100_000,
			RequoteInterval: duration{2 * time.Second},
			DepthLevels:     10,
			Params:          map[string]any{},
		},
		Server: ServerConfig{
			Enabled:       true,
			Port:          8080,
			CORSOrigins:   []string{"*"},
			RatePerSecond: 50,
		},
		Mode:     "engine",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"engine": true,
	"maker":  true,
	"full":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for inconsistencies and returns an error
// listing every problem found, or nil when the config is usable.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: engine, maker, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Engine
	if c.Engine.Instrument == "" {
		errs = append(errs, "engine: instrument must not be empty")
	}
	minP, maxP := parseBound(c.Engine.MinPrice, &errs, "engine: min_price"),
		parseBound(c.Engine.MaxPrice, &errs, "engine: max_price")
	minQ, maxQ := parseBound(c.Engine.MinQuantity, &errs, "engine: min_quantity"),
		parseBound(c.Engine.MaxQuantity, &errs, "engine: max_quantity")
	if minP.Sign() > 0 && maxP.Sign() > 0 && minP.GreaterThan(maxP) {
		errs = append(errs, "engine: min_price must not exceed max_price")
	}
	if minQ.Sign() > 0 && maxQ.Sign() > 0 && minQ.GreaterThan(maxQ) {
		errs = append(errs, "engine: min_quantity must not exceed max_quantity")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only required when archival is on.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Strategy
	needsStrategy := c.Strategy.Enabled || c.Mode == "maker" || c.Mode == "full"
	if needsStrategy {
		if c.Strategy.TraderID == "" {
			errs = append(errs, "strategy: trader_id must not be empty")
		}
		if c.Strategy.QuoteSize <= 0 {
			errs = append(errs, "strategy: quote_size must be > 0")
		}
		if c.Strategy.HalfSpread <= 0 {
			errs = append(errs, "strategy: half_spread must be > 0")
		}
		if c.Strategy.Capital <= 0 {
			errs = append(errs, "strategy: capital must be > 0")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RatePerSecond < 1 {
			errs = append(errs, "server: rate_per_second must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Bounds returns the engine limits as decimals. Call only after Validate.
func (e EngineConfig) Bounds() (minPrice, maxPrice, minQty, maxQty decimal.Decimal) {
	minPrice, _ = decimal.NewFromString(e.MinPrice)
	maxPrice, _ = decimal.NewFromString(e.MaxPrice)
	minQty, _ = decimal.NewFromString(e.MinQuantity)
	maxQty, _ = decimal.NewFromString(e.MaxQuantity)
	return minPrice, maxPrice, minQty, maxQty
}

func parseBound(s string, errs *[]string, field string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not a valid decimal", field, s))
		return decimal.Zero
	}
	if d.Sign() <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be positive, got %s", field, s))
	}
	return d
}
