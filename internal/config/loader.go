package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MATCHCORE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MATCHCORE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setStr(&cfg.Engine.Instrument, "MATCHCORE_ENGINE_INSTRUMENT")
	setStr(&cfg.Engine.MinPrice, "MATCHCORE_ENGINE_MIN_PRICE")
	setStr(&cfg.Engine.MaxPrice, "MATCHCORE_ENGINE_MAX_PRICE")
	setStr(&cfg.Engine.MinQuantity, "MATCHCORE_ENGINE_MIN_QUANTITY")
	setStr(&cfg.Engine.MaxQuantity, "MATCHCORE_ENGINE_MAX_QUANTITY")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MATCHCORE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MATCHCORE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MATCHCORE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MATCHCORE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MATCHCORE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MATCHCORE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MATCHCORE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MATCHCORE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MATCHCORE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MATCHCORE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MATCHCORE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MATCHCORE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MATCHCORE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MATCHCORE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MATCHCORE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MATCHCORE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MATCHCORE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MATCHCORE_S3_REGION")
	setStr(&cfg.S3.Bucket, "MATCHCORE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MATCHCORE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MATCHCORE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MATCHCORE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MATCHCORE_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "MATCHCORE_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "MATCHCORE_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "MATCHCORE_ARCHIVE_INTERVAL")

	// ── Strategy ──
	setBool(&cfg.Strategy.Enabled, "MATCHCORE_STRATEGY_ENABLED")
	setStr(&cfg.Strategy.Name, "MATCHCORE_STRATEGY_NAME")
	setStr(&cfg.Strategy.TraderID, "MATCHCORE_STRATEGY_TRADER_ID")
	setFloat64(&cfg.Strategy.QuoteSize, "MATCHCORE_STRATEGY_QUOTE_SIZE")
	setFloat64(&cfg.Strategy.HalfSpread, "MATCHCORE_STRATEGY_HALF_SPREAD")
	setFloat64(&cfg.Strategy.SkewPerUnit, "MATCHCORE_STRATEGY_SKEW_PER_UNIT")
	setFloat64(&cfg.Strategy.MaxPosition, "MATCHCORE_STRATEGY_MAX_POSITION")
	setFloat64(&cfg.Strategy.Capital, "MATCHCORE_STRATEGY_CAPITAL")
	setDuration(&cfg.Strategy.RequoteInterval, "MATCHCORE_STRATEGY_REQUOTE_INTERVAL")
	setInt(&cfg.Strategy.DepthLevels, "MATCHCORE_STRATEGY_DEPTH_LEVELS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MATCHCORE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MATCHCORE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MATCHCORE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MATCHCORE_SERVER_API_KEY")
	setInt(&cfg.Server.RatePerSecond, "MATCHCORE_SERVER_RATE_PER_SECOND")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MATCHCORE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MATCHCORE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MATCHCORE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MATCHCORE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MATCHCORE_MODE")
	setStr(&cfg.LogLevel, "MATCHCORE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
