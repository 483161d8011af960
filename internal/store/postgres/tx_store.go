package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/ammdesk/internal/domain"
)

// TxStore implements domain.TxRecordStore: an append-only history of
// submitted transactions and their terminal outcomes.
type TxStore struct {
	pool *pgxpool.Pool
}

// NewTxStore creates a TxStore backed by the given connection pool.
func NewTxStore(pool *pgxpool.Pool) *TxStore {
	return &TxStore{pool: pool}
}

// EnsureSchema creates the history table when it does not exist yet.
func (s *TxStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tx_history (
    id           UUID PRIMARY KEY,
    kind         TEXT        NOT NULL,
    market_id    BIGINT      NOT NULL,
    tx_hash      TEXT        NOT NULL DEFAULT '',
    status       TEXT        NOT NULL,
    error        TEXT        NOT NULL DEFAULT '',
    submitted_at TIMESTAMPTZ NOT NULL,
    resolved_at  TIMESTAMPTZ
)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: ensure tx_history schema: %w", err)
	}
	return nil
}

// RecordSubmitted inserts a freshly submitted transaction.
func (s *TxStore) RecordSubmitted(ctx context.Context, tx domain.PendingTransaction) error {
	const query = `
INSERT INTO tx_history (id, kind, market_id, tx_hash, status, error, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query,
		tx.ID, string(tx.Kind), int64(tx.MarketID), tx.Hash.Hex(), string(tx.Status), tx.Error, tx.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record submitted tx %s: %w", tx.ID, err)
	}
	return nil
}

// RecordResolved updates a transaction with its terminal status.
func (s *TxStore) RecordResolved(ctx context.Context, tx domain.PendingTransaction) error {
	const query = `
UPDATE tx_history
SET tx_hash = $2, status = $3, error = $4, resolved_at = $5
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		tx.ID, tx.Hash.Hex(), string(tx.Status), tx.Error, tx.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record resolved tx %s: %w", tx.ID, err)
	}
	if tag.RowsAffected() == 0 {
		// The submit insert may itself have failed; keep history complete.
		return s.RecordSubmitted(ctx, tx)
	}
	return nil
}
