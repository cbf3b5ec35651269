// Package config defines the top-level configuration for kandled and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by KANDLED_* environment
// variables.
type Config struct {
	Chain     ChainConfig     `toml:"chain"`
	Contracts ContractsConfig `toml:"contracts"`
	Kandel    KandelConfig    `toml:"kandel"`
	Indexer   IndexerConfig   `toml:"indexer"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ChainConfig holds the EVM RPC endpoint parameters. The endpoint must
// support log subscriptions (WebSocket) for live indexing.
type ChainConfig struct {
	RPCURL      string   `toml:"rpc_url"`
	CallTimeout duration `toml:"call_timeout"`
}

// ContractsConfig holds the on-chain addresses and pair parameters of the
// watched market.
type ContractsConfig struct {
	Seeder        string `toml:"seeder"`
	BaseToken     string `toml:"base_token"`
	QuoteToken    string `toml:"quote_token"`
	BaseDecimals  int    `toml:"base_decimals"`
	QuoteDecimals int    `toml:"quote_decimals"`
	TickSpacing   uint64 `toml:"tick_spacing"`
}

// KandelConfig holds the gas defaults used for provision estimates.
type KandelConfig struct {
	GasReq       int64 `toml:"gas_req"`
	GasPriceGwei int64 `toml:"gas_price_gwei"`
}

// IndexerConfig holds catch-up and retry parameters for the event indexer.
type IndexerConfig struct {
	StartBlock    uint64   `toml:"start_block"`
	RetryBackoff  duration `toml:"retry_backoff"`
	MaxBackoff    duration `toml:"max_backoff"`
	ArchivePrefix string   `toml:"archive_prefix"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	DepthTTL   duration `toml:"depth_ttl"`
}

// S3Config holds S3-compatible object storage parameters for the event
// archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
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
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			CallTimeout: duration{10 * time.Second},
		},
		Contracts: ContractsConfig{
			BaseDecimals:  18,
			QuoteDecimals: 6,
			TickSpacing:   1,
		},
		Kandel: KandelConfig{
			GasReq:       250_000,
			GasPriceGwei: 1,
		},
		Indexer: IndexerConfig{
			RetryBackoff:  duration{2 * time.Second},
			MaxBackoff:    duration{time.Minute},
			ArchivePrefix: "kandel-events",
		},
		Postgres: PostgresConfig{
			Port:          5432,
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			DepthTTL: duration{5 * time.Minute},
		},
		Server: ServerConfig{
			Enabled:    true,
			Port:       8080,
			RateLimit:  0,
			RateWindow: duration{time.Second},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// Operating modes. Full runs both the indexer and the API server; the other
// two run one half so the process can be split across hosts.
const (
	ModeFull    = "full"
	ModeIndexer = "indexer"
	ModeServer  = "server"
)

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	ModeFull:    true,
	ModeIndexer: true,
	ModeServer:  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, indexer, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain — required whenever the indexer runs.
	mode := strings.ToLower(c.Mode)
	needsChain := mode == "full" || mode == "indexer"
	if needsChain {
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url must not be empty for mode "+c.Mode)
		}
		if c.Contracts.Seeder == "" {
			errs = append(errs, "contracts: seeder must not be empty for mode "+c.Mode)
		}
	}
	if c.Chain.CallTimeout.Duration <= 0 {
		errs = append(errs, "chain: call_timeout must be positive")
	}

	// Contracts — pair parameters must describe a usable market.
	if c.Contracts.BaseDecimals < 0 || c.Contracts.BaseDecimals > 36 {
		errs = append(errs, fmt.Sprintf("contracts: base_decimals must be 0-36, got %d", c.Contracts.BaseDecimals))
	}
	if c.Contracts.QuoteDecimals < 0 || c.Contracts.QuoteDecimals > 36 {
		errs = append(errs, fmt.Sprintf("contracts: quote_decimals must be 0-36, got %d", c.Contracts.QuoteDecimals))
	}
	if c.Contracts.TickSpacing == 0 {
		errs = append(errs, "contracts: tick_spacing must be >= 1")
	}

	// Kandel gas defaults.
	if c.Kandel.GasReq <= 0 {
		errs = append(errs, "kandel: gas_req must be > 0")
	}
	if c.Kandel.GasPriceGwei <= 0 {
		errs = append(errs, "kandel: gas_price_gwei must be > 0")
	}

	// Indexer retry parameters.
	if c.Indexer.RetryBackoff.Duration <= 0 {
		errs = append(errs, "indexer: retry_backoff must be positive")
	}
	if c.Indexer.MaxBackoff.Duration < c.Indexer.RetryBackoff.Duration {
		errs = append(errs, "indexer: max_backoff must be >= retry_backoff")
	}

	// Postgres — only when enabled.
	if c.Postgres.Enabled {
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
	}

	// Redis — only when enabled.
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3 — only when enabled.
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server.
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}
	if mode == "server" && !c.Server.Enabled {
		errs = append(errs, "server: must be enabled for mode server")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
