package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LedgerReader issues side-effect-free queries against the token and market
// contracts. All methods may be retried freely; none of them blocks on any
// other.
type LedgerReader interface {
	// Allowance returns the amount spender may move on behalf of owner.
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)

	// MarketCount returns the number of markets the AMM has created.
	MarketCount(ctx context.Context) (uint64, error)

	// Market returns the full detail for one market.
	Market(ctx context.Context, id uint64) (Market, error)

	// Position returns user's share balances in the given market.
	Position(ctx context.Context, id uint64, user common.Address) (Position, error)

	// Price returns the current AMM price for an outcome, scaled by 1e18.
	Price(ctx context.Context, id uint64, outcome Outcome) (*big.Int, error)
}

// LedgerWriter submits mutating transactions. Each call returns the submitted
// transaction hash; finalization arrives later through WaitConfirmed.
type LedgerWriter interface {
	// Approve authorizes spender to move amount of the collateral token.
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error)

	// Buy spends amountIn collateral on shares of outcome in market id.
	// Reverts on-chain if trading is closed or allowance is insufficient.
	Buy(ctx context.Context, id uint64, outcome Outcome, amountIn *big.Int) (common.Hash, error)

	// Claim redeems the caller's winning (or refundable) shares in market id.
	Claim(ctx context.Context, id uint64) (common.Hash, error)

	// WaitConfirmed blocks until the ledger reports the transaction final.
	// It returns nil for a successful transaction and an error when the
	// transaction reverted. There is no built-in timeout; cancellation is
	// the caller's context.
	WaitConfirmed(ctx context.Context, hash common.Hash) error
}

// SnapshotCache persists the last known read-through state so a restarted
// session can render a warm (if stale) view before its first fetch lands.
type SnapshotCache interface {
	SetMarket(ctx context.Context, m Market) error
	GetMarket(ctx context.Context, id uint64) (Market, error)
	SetPrice(ctx context.Context, id uint64, outcome Outcome, price *big.Int) error
	GetPrice(ctx context.Context, id uint64, outcome Outcome) (*big.Int, error)
}

// TxRecordStore keeps an append-only history of submitted transactions and
// their terminal outcomes.
type TxRecordStore interface {
	RecordSubmitted(ctx context.Context, tx PendingTransaction) error
	RecordResolved(ctx context.Context, tx PendingTransaction) error
}
