// Package config defines the configuration for the ammdesk trading client
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by AMMDESK_* environment variables.
type Config struct {
	Chain    ChainConfig    `toml:"chain"`
	Wallet   WalletConfig   `toml:"wallet"`
	Session  SessionConfig  `toml:"session"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ChainConfig holds the RPC endpoint and the two contract addresses the
// client talks to. The all-zero address is an explicit "unconfigured"
// sentinel, never a usable value.
type ChainConfig struct {
	RPCURL        string `toml:"rpc_url"`
	ChainID       int64  `toml:"chain_id"`
	TokenAddress  string `toml:"token_address"`
	MarketAddress string `toml:"market_address"`
	ExplorerHost  string `toml:"explorer_host"`
}

// TokenAddr returns the parsed collateral token address.
func (c ChainConfig) TokenAddr() common.Address {
	return common.HexToAddress(c.TokenAddress)
}

// MarketAddr returns the parsed AMM contract address.
func (c ChainConfig) MarketAddr() common.Address {
	return common.HexToAddress(c.MarketAddress)
}

// WalletConfig holds the signing key. All fields may be empty, in which case
// the session is read-only and every mutating action is refused.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// Configured reports whether any signing credential source is present.
func (w WalletConfig) Configured() bool {
	return w.PrivateKey != "" || w.EncryptedKeyPath != ""
}

// SessionConfig holds session bootstrap parameters.
type SessionConfig struct {
	// Market preselects a market id at startup.
	Market uint64 `toml:"market"`
	// Amount is the initial trade amount in smallest token units.
	Amount string `toml:"amount"`
	// Outcome is the initial outcome selection: "yes" or "no".
	Outcome string `toml:"outcome"`
}

// RedisConfig holds the optional warm snapshot cache parameters. An empty
// Addr disables the cache entirely.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds the optional transaction-history store parameters. An
// empty DSN disables the store entirely.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
	EnsureSchema bool   `toml:"ensure_schema"`
}

// ServerConfig holds HTTP API server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			ChainID:      84532, // Base Sepolia
			ExplorerHost: "sepolia.basescan.org",
		},
		Session: SessionConfig{
			Amount:  "1000000", // 1 token with 6 decimals
			Outcome: "yes",
		},
		Redis: RedisConfig{
			PoolSize: 10,
		},
		Postgres: PostgresConfig{
			PoolMaxConns: 5,
			PoolMinConns: 1,
			EnsureSchema: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":  true,
	"status": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// zeroAddress is the unconfigured-address sentinel.
var zeroAddress common.Address

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, status)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	} else if !strings.HasPrefix(c.Chain.RPCURL, "http") && !strings.HasPrefix(c.Chain.RPCURL, "ws") {
		errs = append(errs, fmt.Sprintf("chain: rpc_url must be http(s):// or ws(s)://, got %q", c.Chain.RPCURL))
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}
	errs = append(errs, validateAddress("chain: token_address", c.Chain.TokenAddress)...)
	errs = append(errs, validateAddress("chain: market_address", c.Chain.MarketAddress)...)
	if c.Chain.ExplorerHost == "" {
		errs = append(errs, "chain: explorer_host must not be empty")
	}

	// Encrypted key files need a password to open them.
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Session
	switch strings.ToLower(c.Session.Outcome) {
	case "yes", "no":
	default:
		errs = append(errs, fmt.Sprintf("session: outcome must be \"yes\" or \"no\", got %q", c.Session.Outcome))
	}

	// Postgres pool bounds only matter when the store is enabled.
	if strings.TrimSpace(c.Postgres.DSN) != "" {
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Server
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateAddress rejects missing, malformed, and all-zero contract
// addresses. The zero address is the explicit "unset" sentinel and must never
// reach the chain client.
func validateAddress(field, raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{field + " must not be empty"}
	}
	if !common.IsHexAddress(raw) {
		return []string{fmt.Sprintf("%s is not a valid hex address: %q", field, raw)}
	}
	if common.HexToAddress(raw) == zeroAddress {
		return []string{field + " is the zero address (unconfigured sentinel)"}
	}
	return nil
}
