package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// DefaultContractAddress はHardhatローカルノードでデフォルトアカウントが最初にデプロイしたコントラクトのアドレス
const DefaultContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

// Config はアプリケーション全体の設定
type Config struct {
	Server ServerConfig
	Chain  ChainConfig
	Wallet WalletConfig
	CORS   CORSConfig
	Client ClientConfig
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Port string
	Env  string
}

// ChainConfig は接続先ノードとマーケットプレイスコントラクトの設定
type ChainConfig struct {
	RPCURL          string
	ChainID         int64 // 0ならノードに問い合わせる
	ContractAddress string
	ArtifactPath    string
	ReadConcurrency int
	TxTimeout       time.Duration // 0なら無制限に待つ
}

// WalletConfig は署名アカウントの設定。PrivateKeyがKeystoreDirより優先
type WalletConfig struct {
	KeystoreDir string
	Passphrase  string
	PrivateKey  string
}

// CORSConfig はCORSの設定
type CORSConfig struct {
	Origins []string
}

// ClientConfig は起動中のサーバーを呼び出すCLIコマンド用の設定
type ClientConfig struct {
	APIURL  string
	Timeout time.Duration
}

// Load は環境変数と (cfgFileが空でなければ) 設定ファイルから設定を読み込む。環境変数が優先
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("RPC_URL", "http://127.0.0.1:8545")
	v.SetDefault("CHAIN_ID", 0)
	v.SetDefault("CONTRACT_ADDRESS", DefaultContractAddress)
	v.SetDefault("ARTIFACT_PATH", "")
	v.SetDefault("READ_CONCURRENCY", 1)
	v.SetDefault("TX_TIMEOUT", "0s")
	v.SetDefault("KEYSTORE_DIR", "")
	v.SetDefault("WALLET_PASSPHRASE", "")
	v.SetDefault("PRIVATE_KEY", "")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("API_URL", "http://127.0.0.1:8080")
	v.SetDefault("API_TIMEOUT", "5m")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Chain: ChainConfig{
			RPCURL:          v.GetString("RPC_URL"),
			ChainID:         v.GetInt64("CHAIN_ID"),
			ContractAddress: v.GetString("CONTRACT_ADDRESS"),
			ArtifactPath:    v.GetString("ARTIFACT_PATH"),
			ReadConcurrency: v.GetInt("READ_CONCURRENCY"),
			TxTimeout:       v.GetDuration("TX_TIMEOUT"),
		},
		Wallet: WalletConfig{
			KeystoreDir: v.GetString("KEYSTORE_DIR"),
			Passphrase:  v.GetString("WALLET_PASSPHRASE"),
			PrivateKey:  v.GetString("PRIVATE_KEY"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Client: ClientConfig{
			APIURL:  strings.TrimRight(v.GetString("API_URL"), "/"),
			Timeout: v.GetDuration("API_TIMEOUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate は必須項目と値の妥当性を確認する
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Chain.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.Chain.ChainID < 0 {
		return fmt.Errorf("CHAIN_ID must be non-negative")
	}
	if !common.IsHexAddress(c.Chain.ContractAddress) {
		return fmt.Errorf("CONTRACT_ADDRESS %q is not a hex address", c.Chain.ContractAddress)
	}
	if c.Chain.ReadConcurrency < 1 {
		return fmt.Errorf("READ_CONCURRENCY must be at least 1")
	}
	if c.Chain.TxTimeout < 0 {
		return fmt.Errorf("TX_TIMEOUT must be non-negative")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	if c.Client.APIURL == "" {
		return fmt.Errorf("API_URL is required")
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("API_TIMEOUT must be non-negative")
	}

	return nil
}

// HasWallet は署名アカウントが設定されているかを返す
func (w WalletConfig) HasWallet() bool {
	return w.PrivateKey != "" || w.KeystoreDir != ""
}

// parseOrigins はカンマ区切りのオリジンを分割する
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
