package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.Chain.RPCURL)
	assert.Equal(t, DefaultContractAddress, cfg.Chain.ContractAddress)
	assert.Equal(t, int64(0), cfg.Chain.ChainID)
	assert.Equal(t, 1, cfg.Chain.ReadConcurrency)
	assert.Equal(t, time.Duration(0), cfg.Chain.TxTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.Client.APIURL)
	assert.Equal(t, 5*time.Minute, cfg.Client.Timeout)
	assert.False(t, cfg.Wallet.HasWallet())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RPC_URL", "http://node:8545")
	t.Setenv("CHAIN_ID", "31337")
	t.Setenv("READ_CONCURRENCY", "4")
	t.Setenv("TX_TIMEOUT", "90s")
	t.Setenv("PRIVATE_KEY", "deadbeef")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, http://localhost:3001")
	t.Setenv("API_URL", "http://api:8080/")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "http://node:8545", cfg.Chain.RPCURL)
	assert.Equal(t, int64(31337), cfg.Chain.ChainID)
	assert.Equal(t, 4, cfg.Chain.ReadConcurrency)
	assert.Equal(t, 90*time.Second, cfg.Chain.TxTimeout)
	assert.True(t, cfg.Wallet.HasWallet())
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.CORS.Origins)
	assert.Equal(t, "http://api:8080", cfg.Client.APIURL)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketplace.yaml")
	content := "rpc_url: http://file-node:8545\nkeystore_dir: /tmp/keys\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://file-node:8545", cfg.Chain.RPCURL)
	assert.Equal(t, "/tmp/keys", cfg.Wallet.KeystoreDir)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidContractAddress(t *testing.T) {
	t.Setenv("CONTRACT_ADDRESS", "not-an-address")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONTRACT_ADDRESS")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8080", Env: "test"},
			Chain: ChainConfig{
				RPCURL:          "http://127.0.0.1:8545",
				ContractAddress: DefaultContractAddress,
				ReadConcurrency: 1,
			},
			CORS:   CORSConfig{Origins: []string{"*"}},
			Client: ClientConfig{APIURL: "http://127.0.0.1:8080"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }},
		{"missing rpc url", func(c *Config) { c.Chain.RPCURL = "" }},
		{"negative chain id", func(c *Config) { c.Chain.ChainID = -1 }},
		{"zero read concurrency", func(c *Config) { c.Chain.ReadConcurrency = 0 }},
		{"negative tx timeout", func(c *Config) { c.Chain.TxTimeout = -time.Second }},
		{"no cors origins", func(c *Config) { c.CORS.Origins = nil }},
		{"missing api url", func(c *Config) { c.Client.APIURL = "" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
