// Package orchestrator sequences the mutating flows (approve, buy, claim)
// against the ledger. It owns the single in-flight transaction slot, drives
// each transaction through its lifecycle, and reports every transition into
// the session engine so the derived view follows the ledger's truth.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/google/uuid"

	"github.com/alanyoungcy/ammdesk/internal/domain"
	"github.com/alanyoungcy/ammdesk/internal/session"
)

// Orchestrator drives the two-phase transaction flow. The pending slot is the
// only shared mutable resource: it is checked and set under one mutex, so two
// user-triggered submissions can never both pass the in-flight guard.
type Orchestrator struct {
	writer  domain.LedgerWriter // nil when the session is signerless
	spender common.Address      // the AMM contract, approved to move collateral
	store   domain.TxRecordStore
	logger  *slog.Logger

	dispatch func(session.Event)

	// waitCtx outlives individual HTTP requests: confirmation waits are tied
	// to the session, not to the request that submitted the transaction.
	waitCtx context.Context

	mu      sync.Mutex
	pending *domain.PendingTransaction
}

// New creates an Orchestrator. writer may be nil (read-only session); store
// may be nil (history disabled).
func New(writer domain.LedgerWriter, spender common.Address, store domain.TxRecordStore, dispatch func(session.Event), logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		writer:   writer,
		spender:  spender,
		store:    store,
		logger:   logger.With(slog.String("component", "orchestrator")),
		dispatch: dispatch,
	}
}

// Start binds the confirmation-wait context. Must be called once before any
// submission; waits are abandoned when ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) {
	o.waitCtx = ctx
}

// Pending returns a copy of the current slot content, or nil.
func (o *Orchestrator) Pending() *domain.PendingTransaction {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		return nil
	}
	cp := *o.pending
	return &cp
}

// Approve submits an approval for the maximum representable token amount.
// Approving max(uint256) once spares the user a fresh approval before every
// subsequent trade.
func (o *Orchestrator) Approve(ctx context.Context) (domain.PendingTransaction, error) {
	tx, err := o.begin(domain.TxKindApprove, 0)
	if err != nil {
		return domain.PendingTransaction{}, err
	}
	return o.submit(ctx, tx, func(ctx context.Context) (common.Hash, error) {
		return o.writer.Approve(ctx, o.spender, new(big.Int).Set(math.MaxBig256))
	})
}

// Buy submits a trade for the given market, outcome, and collateral amount.
func (o *Orchestrator) Buy(ctx context.Context, marketID uint64, outcome domain.Outcome, amount *big.Int) (domain.PendingTransaction, error) {
	if amount == nil || amount.Sign() <= 0 {
		return domain.PendingTransaction{}, domain.ErrInvalidAmount
	}
	if !outcome.Valid() {
		return domain.PendingTransaction{}, fmt.Errorf("%w: outcome %d", domain.ErrInvalidAmount, outcome)
	}
	tx, err := o.begin(domain.TxKindBuy, marketID)
	if err != nil {
		return domain.PendingTransaction{}, err
	}
	amount = new(big.Int).Set(amount)
	return o.submit(ctx, tx, func(ctx context.Context) (common.Hash, error) {
		return o.writer.Buy(ctx, marketID, outcome, amount)
	})
}

// Claim submits a payout claim for the given market.
func (o *Orchestrator) Claim(ctx context.Context, marketID uint64) (domain.PendingTransaction, error) {
	tx, err := o.begin(domain.TxKindClaim, marketID)
	if err != nil {
		return domain.PendingTransaction{}, err
	}
	return o.submit(ctx, tx, func(ctx context.Context) (common.Hash, error) {
		return o.writer.Claim(ctx, marketID)
	})
}

// begin performs the guarded Idle -> Submitting transition. It refuses when
// no signer is available or another transaction still occupies the slot.
func (o *Orchestrator) begin(kind domain.TxKind, marketID uint64) (domain.PendingTransaction, error) {
	if o.writer == nil {
		return domain.PendingTransaction{}, domain.ErrNoSigner
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending.InFlight() {
		return domain.PendingTransaction{}, domain.ErrTxInFlight
	}
	tx := domain.PendingTransaction{
		ID:          uuid.New().String(),
		Kind:        kind,
		MarketID:    marketID,
		Status:      domain.TxStatusSubmitting,
		SubmittedAt: time.Now().UTC(),
	}
	o.pending = &tx
	return tx, nil
}

// submit runs the submission, transitions to AwaitingConfirmation on a hash
// or Rejected on a signer error, and spawns the confirmation wait.
func (o *Orchestrator) submit(ctx context.Context, tx domain.PendingTransaction, send func(context.Context) (common.Hash, error)) (domain.PendingTransaction, error) {
	o.dispatch(session.TxSubmitted{Tx: tx})
	o.record(ctx, tx, false)

	hash, err := send(ctx)
	if err != nil {
		// Declined or failed before reaching the mempool: back to Idle with
		// the reason surfaced verbatim.
		tx = o.resolve(tx, domain.TxStatusRejected, fmt.Sprintf("%s: %v", tx.Kind.FailureMessage(), err))
		o.dispatch(session.TxRejected{Tx: tx})
		o.record(ctx, tx, true)
		return tx, nil
	}

	tx.Hash = hash
	tx.Status = domain.TxStatusAwaiting
	o.setPending(tx)
	o.dispatch(session.TxAccepted{Tx: tx})

	go o.awaitConfirmation(tx)
	return tx, nil
}

// awaitConfirmation blocks on the ledger's terminal signal. There is no
// timeout: a stuck transaction waits until the session ends, and the only
// user-facing remedy is the explorer link.
func (o *Orchestrator) awaitConfirmation(tx domain.PendingTransaction) {
	ctx := o.waitCtx
	err := o.writer.WaitConfirmed(ctx, tx.Hash)
	if ctx.Err() != nil {
		return // session ended; no further side effects
	}

	if err != nil {
		tx = o.resolve(tx, domain.TxStatusFailed, fmt.Sprintf("%s: %v", tx.Kind.FailureMessage(), err))
		o.logger.WarnContext(ctx, "transaction reverted",
			slog.String("kind", string(tx.Kind)),
			slog.String("tx", tx.Hash.Hex()),
			slog.String("error", err.Error()),
		)
		o.dispatch(session.TxFailed{Tx: tx})
		o.record(ctx, tx, true)
		return
	}

	tx = o.resolve(tx, domain.TxStatusConfirmed, "")
	o.logger.InfoContext(ctx, "transaction confirmed",
		slog.String("kind", string(tx.Kind)),
		slog.String("tx", tx.Hash.Hex()),
	)
	o.dispatch(session.TxConfirmed{Tx: tx})
	o.record(ctx, tx, true)
}

// resolve applies a terminal transition to the slot and returns the updated
// copy.
func (o *Orchestrator) resolve(tx domain.PendingTransaction, status domain.TxStatus, msg string) domain.PendingTransaction {
	tx.Status = status
	tx.Error = msg
	tx.ResolvedAt = time.Now().UTC()
	o.setPending(tx)
	return tx
}

func (o *Orchestrator) setPending(tx domain.PendingTransaction) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = &tx
}

// record appends to the history store. Failures are logged, never fatal.
func (o *Orchestrator) record(ctx context.Context, tx domain.PendingTransaction, resolved bool) {
	if o.store == nil {
		return
	}
	var err error
	if resolved {
		err = o.store.RecordResolved(ctx, tx)
	} else {
		err = o.store.RecordSubmitted(ctx, tx)
	}
	if err != nil && ctx.Err() == nil {
		o.logger.WarnContext(ctx, "transaction history write failed",
			slog.String("tx_id", tx.ID),
			slog.String("error", err.Error()),
		)
	}
}
