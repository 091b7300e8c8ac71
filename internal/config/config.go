package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	defaultPort           = "8080"
	defaultROFLSocket     = "/run/rofl-appd.sock"
	defaultPoolContract   = "0xf3Fa41af708b8c5329410A2b2bF4cA04a5F832B2"
	defaultPoolAmountROSE = 1.0
	defaultIdentityVerify = "https://verify.yap2win.xyz"
)

// Config holds everything the process reads from the environment.
type Config struct {
	TelegramToken string
	WebhookMode   bool
	WebhookURL    string
	Port          string

	// Empty means the in-memory store.
	SQLitePath string

	// Empty disables NFT verification.
	EthRPCURL string

	ROFLSocketPath      string
	PoolContractAddress string
	DefaultPoolAmount   float64
	// Empty disables on-chain pool creation.
	ROFLEnabled bool

	IdentityVerifyURL   string
	EnforceVerification bool
}

// LoadFromEnv reads the configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		TelegramToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookMode:         boolEnv("WEBHOOK_MODE"),
		WebhookURL:          os.Getenv("WEBHOOK_URL"),
		Port:                envOr("PORT", defaultPort),
		SQLitePath:          os.Getenv("SQLITE_PATH"),
		EthRPCURL:           os.Getenv("ETH_RPC_URL"),
		ROFLSocketPath:      envOr("ROFL_SOCKET_PATH", defaultROFLSocket),
		PoolContractAddress: envOr("POOL_CONTRACT_ADDRESS", defaultPoolContract),
		DefaultPoolAmount:   defaultPoolAmountROSE,
		ROFLEnabled:         boolEnv("ROFL_ENABLED"),
		IdentityVerifyURL:   envOr("IDENTITY_VERIFY_URL", defaultIdentityVerify),
		EnforceVerification: boolEnv("ENFORCE_VERIFICATION"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.WebhookMode && cfg.WebhookURL == "" {
		return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is enabled")
	}

	if v := os.Getenv("DEFAULT_POOL_AMOUNT"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("DEFAULT_POOL_AMOUNT must be a positive number, got %q", v)
		}
		cfg.DefaultPoolAmount = amount
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
