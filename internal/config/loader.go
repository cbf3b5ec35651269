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
// built-in defaults, applies KANDLED_* environment variable overrides, and
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

// applyEnvOverrides reads well-known KANDLED_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "KANDLED_CHAIN_RPC_URL")
	setDuration(&cfg.Chain.CallTimeout, "KANDLED_CHAIN_CALL_TIMEOUT")

	// ── Contracts ──
	setStr(&cfg.Contracts.Seeder, "KANDLED_CONTRACTS_SEEDER")
	setStr(&cfg.Contracts.BaseToken, "KANDLED_CONTRACTS_BASE_TOKEN")
	setStr(&cfg.Contracts.QuoteToken, "KANDLED_CONTRACTS_QUOTE_TOKEN")
	setInt(&cfg.Contracts.BaseDecimals, "KANDLED_CONTRACTS_BASE_DECIMALS")
	setInt(&cfg.Contracts.QuoteDecimals, "KANDLED_CONTRACTS_QUOTE_DECIMALS")
	setUint64(&cfg.Contracts.TickSpacing, "KANDLED_CONTRACTS_TICK_SPACING")

	// ── Kandel ──
	setInt64(&cfg.Kandel.GasReq, "KANDLED_KANDEL_GAS_REQ")
	setInt64(&cfg.Kandel.GasPriceGwei, "KANDLED_KANDEL_GAS_PRICE_GWEI")

	// ── Indexer ──
	setUint64(&cfg.Indexer.StartBlock, "KANDLED_INDEXER_START_BLOCK")
	setDuration(&cfg.Indexer.RetryBackoff, "KANDLED_INDEXER_RETRY_BACKOFF")
	setDuration(&cfg.Indexer.MaxBackoff, "KANDLED_INDEXER_MAX_BACKOFF")
	setStr(&cfg.Indexer.ArchivePrefix, "KANDLED_INDEXER_ARCHIVE_PREFIX")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "KANDLED_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "KANDLED_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "KANDLED_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "KANDLED_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "KANDLED_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "KANDLED_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "KANDLED_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "KANDLED_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "KANDLED_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "KANDLED_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "KANDLED_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "KANDLED_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "KANDLED_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "KANDLED_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "KANDLED_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "KANDLED_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "KANDLED_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "KANDLED_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.DepthTTL, "KANDLED_REDIS_DEPTH_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "KANDLED_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "KANDLED_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "KANDLED_S3_REGION")
	setStr(&cfg.S3.Bucket, "KANDLED_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "KANDLED_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "KANDLED_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "KANDLED_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "KANDLED_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "KANDLED_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "KANDLED_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "KANDLED_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "KANDLED_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "KANDLED_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "KANDLED_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "KANDLED_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "KANDLED_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "KANDLED_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "KANDLED_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "KANDLED_MODE")
	setStr(&cfg.LogLevel, "KANDLED_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
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
