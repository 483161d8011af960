package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies AMMDESK_* environment variable overrides, and
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

// applyEnvOverrides reads well-known AMMDESK_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "AMMDESK_CHAIN_RPC_URL")
	setStr(&cfg.Chain.RPCURL, "RPC_URL") // compatibility alias
	setInt64(&cfg.Chain.ChainID, "AMMDESK_CHAIN_ID")
	setStr(&cfg.Chain.TokenAddress, "AMMDESK_TOKEN_ADDRESS")
	setStr(&cfg.Chain.MarketAddress, "AMMDESK_MARKET_ADDRESS")
	setStr(&cfg.Chain.ExplorerHost, "AMMDESK_EXPLORER_HOST")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "AMMDESK_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "AMMDESK_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "AMMDESK_WALLET_KEY_PASSWORD")

	// ── Session ──
	setUint64(&cfg.Session.Market, "AMMDESK_SESSION_MARKET")
	setStr(&cfg.Session.Amount, "AMMDESK_SESSION_AMOUNT")
	setStr(&cfg.Session.Outcome, "AMMDESK_SESSION_OUTCOME")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "AMMDESK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AMMDESK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "AMMDESK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "AMMDESK_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "AMMDESK_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "AMMDESK_POSTGRES_DSN")
	setInt(&cfg.Postgres.PoolMaxConns, "AMMDESK_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "AMMDESK_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.EnsureSchema, "AMMDESK_POSTGRES_ENSURE_SCHEMA")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "AMMDESK_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "AMMDESK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "AMMDESK_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.Mode, "AMMDESK_MODE")
	setStr(&cfg.LogLevel, "AMMDESK_LOG_LEVEL")
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
