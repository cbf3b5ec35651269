package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_FullModeNeedsChain(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain: rpc_url")
	assert.Contains(t, err.Error(), "contracts: seeder")

	cfg.Chain.RPCURL = "wss://rpc.example"
	cfg.Contracts.Seeder = "0x01"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ServerModeSkipsChain(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"
	assert.NoError(t, cfg.Validate())

	cfg.Server.Enabled = false
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be enabled for mode server")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"
	cfg.LogLevel = "loud"
	cfg.Kandel.GasReq = 0
	cfg.Indexer.MaxBackoff = duration{time.Millisecond}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "gas_req")
	assert.Contains(t, err.Error(), "max_backoff")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KANDLED_CHAIN_RPC_URL", "wss://override.example")
	t.Setenv("KANDLED_INDEXER_START_BLOCK", "1234")
	t.Setenv("KANDLED_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("KANDLED_REDIS_DEPTH_TTL", "90s")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "wss://override.example", cfg.Chain.RPCURL)
	assert.Equal(t, uint64(1234), cfg.Indexer.StartBlock)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 90*time.Second, cfg.Redis.DepthTTL.Duration)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Server.APIKey = "key"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
}
