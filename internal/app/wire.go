package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/ammdesk/internal/cache/redis"
	"github.com/alanyoungcy/ammdesk/internal/chain"
	"github.com/alanyoungcy/ammdesk/internal/config"
	"github.com/alanyoungcy/ammdesk/internal/domain"
	"github.com/alanyoungcy/ammdesk/internal/reader"
	"github.com/alanyoungcy/ammdesk/internal/session"
	"github.com/alanyoungcy/ammdesk/internal/store/postgres"
	"github.com/alanyoungcy/ammdesk/internal/wallet"
)

// Dependencies bundles everything the application modes need to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Chain   *chain.Client
	Writer  domain.LedgerWriter  // nil when the session is signerless
	Account common.Address       // zero when the session is signerless
	Cache   domain.SnapshotCache // nil when Redis is not configured
	TxStore domain.TxRecordStore // nil when Postgres is not configured
	Reader  *reader.Service

	// Initial is the session state the engine starts from: the configured
	// account, selected market, and trade intent.
	Initial session.State
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Chain client ---
	chainClient, err := chain.Dial(ctx, cfg.Chain.RPCURL, cfg.Chain.TokenAddr(), cfg.Chain.MarketAddr(), logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, chainClient.Close)
	deps.Chain = chainClient

	// --- Wallet (optional; without it the session is read-only) ---
	if cfg.Wallet.Configured() {
		key, err := wallet.Load(wallet.Source{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		writer, err := chain.NewWriter(chainClient, key, cfg.Chain.ChainID, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: writer: %w", err)
		}
		deps.Writer = writer
		deps.Account = ethcrypto.PubkeyToAddress(key.PublicKey)
	} else {
		logger.InfoContext(ctx, "no wallet configured, session is read-only")
	}

	// --- Redis snapshot cache (optional) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Cache = redis.NewSnapshotCache(redisClient)
	}

	// --- Postgres transaction history (optional) ---
	if cfg.Postgres.DSN != "" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		txStore := postgres.NewTxStore(pgClient.Pool())
		if cfg.Postgres.EnsureSchema {
			if err := txStore.EnsureSchema(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres schema: %w", err)
			}
		}
		deps.TxStore = txStore
	}

	// --- Reader ---
	deps.Reader = reader.New(chainClient, deps.Cache, deps.Account, cfg.Chain.MarketAddr(), logger)

	// --- Initial session state ---
	initial, err := initialState(cfg, deps.Account)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.Initial = initial

	return deps, cleanup, nil
}

// initialState builds the session state the engine starts from. Now is seeded
// from the wall clock so views rendered before the first tick already compare
// end times against real time.
func initialState(cfg *config.Config, account common.Address) (session.State, error) {
	st := session.State{
		Account:  account,
		Selected: cfg.Session.Market,
		Now:      time.Now().Unix(),
	}
	if cfg.Session.Amount != "" {
		amount, ok := new(big.Int).SetString(cfg.Session.Amount, 10)
		if !ok || amount.Sign() < 0 {
			return session.State{}, fmt.Errorf("wire: session amount %q is not a non-negative integer", cfg.Session.Amount)
		}
		st.Amount = amount
	}
	outcome, err := domain.ParseOutcome(cfg.Session.Outcome)
	if err != nil {
		return session.State{}, fmt.Errorf("wire: session outcome: %w", err)
	}
	st.Outcome = outcome
	return st, nil
}
