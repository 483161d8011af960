package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TxKind names the three mutating flows the client can drive.
type TxKind string

const (
	TxKindApprove TxKind = "approve"
	TxKindBuy     TxKind = "buy"
	TxKindClaim   TxKind = "claim"
)

// FailureMessage returns the generic per-action failure message used when the
// ledger or signer gives no reason of its own.
func (k TxKind) FailureMessage() string {
	switch k {
	case TxKindApprove:
		return "Approval failed"
	case TxKindBuy:
		return "Buy failed"
	case TxKindClaim:
		return "Claim failed"
	default:
		return "Transaction failed"
	}
}

// TxStatus tracks a pending transaction's lifecycle.
//
// Valid transitions:
//
//	Submitting -> AwaitingConfirmation (signer returned a hash)
//	Submitting -> Rejected             (user declined / pre-submission error)
//	AwaitingConfirmation -> Confirmed  (receipt status 1)
//	AwaitingConfirmation -> Failed     (receipt status 0, reverted)
//
// Confirmed, Rejected, and Failed are terminal.
type TxStatus string

const (
	TxStatusSubmitting TxStatus = "submitting"
	TxStatusAwaiting   TxStatus = "awaiting_confirmation"
	TxStatusConfirmed  TxStatus = "confirmed"
	TxStatusRejected   TxStatus = "rejected"
	TxStatusFailed     TxStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s TxStatus) Terminal() bool {
	return s == TxStatusConfirmed || s == TxStatusRejected || s == TxStatusFailed
}

// PendingTransaction is the single mutable in-flight transaction slot for a
// session. At most one exists at a time; new submissions are refused while
// its status is non-terminal.
type PendingTransaction struct {
	ID          string // local uuid, assigned at submission
	Kind        TxKind
	MarketID    uint64 // zero for approve
	Hash        common.Hash
	Status      TxStatus
	Error       string // human-readable, set on Rejected/Failed
	SubmittedAt time.Time
	ResolvedAt  time.Time // terminal transition time
}

// InFlight reports whether the transaction still occupies the session slot.
func (t *PendingTransaction) InFlight() bool {
	return t != nil && !t.Status.Terminal()
}
