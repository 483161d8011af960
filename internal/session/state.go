package session

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammdesk/internal/domain"
)

// State is the single consolidated session-state value. Every rendered view
// is a pure projection of State plus the reader's latest snapshot; no session
// field lives anywhere else.
type State struct {
	Account  common.Address // zero when signerless
	Selected uint64         // selected market id

	// Trade intent; replaced wholesale on every edit.
	Amount  *big.Int // smallest token unit, nil means unset
	Outcome domain.Outcome

	Now int64 // last clock tick, unix seconds

	// Pending is the single in-flight (or last terminal) transaction.
	Pending *domain.PendingTransaction

	LastTxHash common.Hash
	LastError  string
}

// Reduce is the session's pure transition function. Given the current state
// and an event it returns the next state and the effects to execute. It never
// performs I/O.
func Reduce(st State, event Event) (State, []Effect) {
	switch evt := event.(type) {
	case Tick:
		st.Now = evt.Now
		return st, []Effect{Publish{}}

	case IntentChanged:
		st.Amount = evt.Amount
		st.Outcome = evt.Outcome
		return st, []Effect{Publish{}}

	case MarketSelected:
		if evt.ID == st.Selected {
			return st, nil
		}
		st.Selected = evt.ID
		st.LastError = ""
		return st, []Effect{
			RefreshMarket{ID: evt.ID},
			RefreshPosition{ID: evt.ID},
			RefreshPrices{ID: evt.ID},
			Publish{},
		}

	case ReadCompleted:
		return st, []Effect{Publish{}}

	case TxSubmitted:
		tx := evt.Tx
		st.Pending = &tx
		st.LastError = ""
		return st, []Effect{Publish{}}

	case TxAccepted:
		tx := evt.Tx
		st.Pending = &tx
		st.LastTxHash = tx.Hash
		return st, []Effect{Publish{}}

	case TxConfirmed:
		tx := evt.Tx
		st.Pending = &tx
		// Mandatory post-confirmation refresh, modeled as a transition
		// action: allowance always, plus position/market/prices for
		// transactions that move shares. The derived view only flips
		// (Approve -> Buy, Claim withdrawn) once these reads land.
		effects := []Effect{RefreshAllowance{}}
		if tx.Kind == domain.TxKindBuy || tx.Kind == domain.TxKindClaim {
			effects = append(effects,
				RefreshPosition{ID: tx.MarketID},
				RefreshMarket{ID: tx.MarketID},
				RefreshPrices{ID: tx.MarketID},
			)
		}
		return st, append(effects, Publish{})

	case TxRejected:
		tx := evt.Tx
		st.Pending = &tx
		st.LastError = tx.Error
		return st, []Effect{Publish{}}

	case TxFailed:
		tx := evt.Tx
		st.Pending = &tx
		st.LastError = tx.Error
		return st, []Effect{Publish{}}
	}

	// Unknown event: stay put.
	return st, nil
}
