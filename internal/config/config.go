package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds every tunable the service reads from its environment (§6).
type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Order store configuration
	DatabaseURL string

	// Upstream collaborators
	BalanceOracleRPCURL string // JSON-RPC URL the balance oracle dials
	PriceOracleURL      string // HTTP base URL for native price lookups
	BlockStreamURL      string // WebSocket URL for the block stream

	// Auction cache tunables
	MinOrderValidity       time.Duration
	UpdateInterval         time.Duration
	MaxAuctionCreationTime time.Duration
	BannedUsers            []common.Address

	// Observability
	MetricsPort int
}

// Load reads Config from the environment, applying defaults and then
// validating the result.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		Environment:            getEnv("ENVIRONMENT", "development"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		BalanceOracleRPCURL:    getEnv("BALANCE_ORACLE_RPC_URL", ""),
		PriceOracleURL:         getEnv("PRICE_ORACLE_URL", ""),
		BlockStreamURL:         getEnv("BLOCK_STREAM_URL", ""),
		MinOrderValidity:       time.Duration(getEnvInt("MIN_ORDER_VALIDITY_SECONDS", 60)) * time.Second,
		UpdateInterval:         time.Duration(getEnvInt("UPDATE_INTERVAL_SECONDS", 2)) * time.Second,
		MaxAuctionCreationTime: time.Duration(getEnvInt("MAX_AUCTION_CREATION_SECONDS", 10)) * time.Second,
		BannedUsers:            getEnvAddressList("BANNED_USERS"),
		MetricsPort:            getEnvInt("METRICS_PORT", 9090),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.BalanceOracleRPCURL == "" {
		return fmt.Errorf("BALANCE_ORACLE_RPC_URL is required")
	}
	if c.PriceOracleURL == "" {
		return fmt.Errorf("PRICE_ORACLE_URL is required")
	}
	if c.BlockStreamURL == "" {
		return fmt.Errorf("BLOCK_STREAM_URL is required")
	}
	if c.MinOrderValidity <= 0 {
		return fmt.Errorf("MIN_ORDER_VALIDITY_SECONDS must be positive")
	}
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("UPDATE_INTERVAL_SECONDS must be positive")
	}
	if c.MaxAuctionCreationTime <= 0 {
		return fmt.Errorf("MAX_AUCTION_CREATION_SECONDS must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAddressList parses a comma-separated list of hex addresses, skipping
// anything that isn't well-formed rather than failing startup over one bad
// entry in an operational denylist.
func getEnvAddressList(key string) []common.Address {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []common.Address
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !common.IsHexAddress(part) {
			continue
		}
		out = append(out, common.HexToAddress(part))
	}
	return out
}
