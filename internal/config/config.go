package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DeploymentConfig represents deployments.json: where the game contracts
// live on which chain.
type DeploymentConfig struct {
	ChainID   int64 `json:"chainId"`
	Contracts struct {
		DegenerusGame string `json:"DegenerusGame"`
		BurnieToken   string `json:"BurnieToken"`
	} `json:"contracts"`
}

type ServiceConfig struct {
	HTTPPort         int
	HMACSecret       string
	HMACClockSkew    time.Duration
	SyncInterval     time.Duration
	CachePath        string
	CachePostgresDSN string
}

type ChainConfig struct {
	RPCURL        string
	PrivateKey    string
	PlayerAddress string
}

// AppConfig ties together deployment info and runtime knobs.
type AppConfig struct {
	Deployment DeploymentConfig
	Service    ServiceConfig
	Chain      ChainConfig
}

const defaultDeploymentsPath = "./deployments.json"

// Load aggregates configuration from disk and environment.
func Load() (*AppConfig, error) {
	deploymentsPath := envOr("DEPLOYMENTS_PATH", defaultDeploymentsPath)

	deployCfg, err := loadDeployments(deploymentsPath)
	if err != nil {
		return nil, fmt.Errorf("load deployments: %w", err)
	}

	serviceCfg := ServiceConfig{
		HTTPPort:         envOrInt("MINT_HTTP_PORT", 3000),
		HMACSecret:       envOr("MINT_HMAC_SECRET", ""),
		HMACClockSkew:    time.Duration(envOrInt("HMAC_CLOCK_SKEW_SECONDS", 60)) * time.Second,
		SyncInterval:     time.Duration(envOrInt("SYNC_INTERVAL_MS", 15000)) * time.Millisecond,
		CachePath:        envOr("CACHE_PATH", filepath.Join(os.TempDir(), "degenmint-cache.json")),
		CachePostgresDSN: envOr("CACHE_PG_DSN", ""),
	}

	chainCfg := ChainConfig{
		RPCURL:        envOr("CHAIN_RPC_URL", ""),
		PrivateKey:    envOr("CHAIN_PRIVATE_KEY", ""),
		PlayerAddress: envOr("PLAYER_ADDRESS", ""),
	}

	return &AppConfig{
		Deployment: *deployCfg,
		Service:    serviceCfg,
		Chain:      chainCfg,
	}, nil
}

func loadDeployments(path string) (*DeploymentConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg DeploymentConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}
