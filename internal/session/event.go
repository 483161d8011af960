package session

import (
	"math/big"

	"github.com/alanyoungcy/ammdesk/internal/domain"
	"github.com/alanyoungcy/ammdesk/internal/reader"
)

// Event is a state transition trigger: a user edit, a clock tick, a completed
// read, or a transaction lifecycle signal from the orchestrator.
type Event interface {
	isEvent()
}

// Tick carries the current wall time in unix seconds.
type Tick struct {
	Now int64
}

func (Tick) isEvent() {}

// IntentChanged replaces the trade intent wholesale.
type IntentChanged struct {
	Amount  *big.Int
	Outcome domain.Outcome
}

func (IntentChanged) isEvent() {}

// MarketSelected switches the session to another market.
type MarketSelected struct {
	ID uint64
}

func (MarketSelected) isEvent() {}

// ReadCompleted is sent by the reader when a refresh lands.
type ReadCompleted struct {
	Kind     reader.Kind
	MarketID uint64
}

func (ReadCompleted) isEvent() {}

// TxSubmitted is sent when the orchestrator occupies the pending slot.
type TxSubmitted struct {
	Tx domain.PendingTransaction
}

func (TxSubmitted) isEvent() {}

// TxAccepted is sent when the signer returned a transaction hash.
type TxAccepted struct {
	Tx domain.PendingTransaction
}

func (TxAccepted) isEvent() {}

// TxConfirmed is sent when the ledger reports the transaction finalized.
type TxConfirmed struct {
	Tx domain.PendingTransaction
}

func (TxConfirmed) isEvent() {}

// TxRejected is sent when the signer declined or failed before submission.
type TxRejected struct {
	Tx domain.PendingTransaction
}

func (TxRejected) isEvent() {}

// TxFailed is sent when the transaction reverted on-chain.
type TxFailed struct {
	Tx domain.PendingTransaction
}

func (TxFailed) isEvent() {}

// Effect is work the engine performs after a transition. Effects are
// descriptions; Reduce stays pure.
type Effect interface {
	isEffect()
}

// RefreshAllowance re-reads the token allowance.
type RefreshAllowance struct{}

func (RefreshAllowance) isEffect() {}

// RefreshMarket re-reads one market's detail.
type RefreshMarket struct{ ID uint64 }

func (RefreshMarket) isEffect() {}

// RefreshPosition re-reads the user's position in one market.
type RefreshPosition struct{ ID uint64 }

func (RefreshPosition) isEffect() {}

// RefreshPrices re-reads both outcome prices for one market.
type RefreshPrices struct{ ID uint64 }

func (RefreshPrices) isEffect() {}

// Publish pushes the recomputed view to connected clients.
type Publish struct{}

func (Publish) isEffect() {}
