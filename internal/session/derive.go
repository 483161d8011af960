package session

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammdesk/internal/domain"
	"github.com/alanyoungcy/ammdesk/internal/reader"
)

// Action is the single mutating action offered for the current snapshot.
// At most one is ever offered; conflicting actions are never shown together.
type Action string

const (
	ActionNone    Action = "none"
	ActionApprove Action = "approve"
	ActionBuy     Action = "buy"
	ActionClaim   Action = "claim"
)

// Derived is the authoritative computed view of the session. It is a pure
// function of the reader snapshot and the session state; it holds no
// references into either.
type Derived struct {
	MarketKnown bool
	Question    string
	TradingOpen bool
	Countdown   string
	Resolved    bool
	Invalid     bool
	Winner      domain.Outcome

	NeedsApproval bool
	CanClaim      bool
	Action        Action

	PriceA string
	PriceB string

	SharesA string
	SharesB string

	LiquidityA string
	LiquidityB string
}

// Derive recomputes the view. It is re-evaluated whenever any input changes
// and has no side effects.
//
// TradingOpen and Countdown are both driven by the one remaining-time
// comparison so they can never disagree at the end-time boundary: at
// now == endTime trading is closed and the countdown reads "00:00:00".
func Derive(snap reader.Snapshot, st State) Derived {
	d := Derived{
		Countdown: Placeholder,
		PriceA:    Placeholder,
		PriceB:    Placeholder,
		SharesA:   FormatShares(snap.Position.Data.SharesA, snap.Position.OK),
		SharesB:   FormatShares(snap.Position.Data.SharesB, snap.Position.OK),
	}

	if snap.Market.OK {
		m := snap.Market.Data
		d.MarketKnown = true
		d.Question = m.Question
		d.Resolved = m.Resolved
		d.Invalid = m.Invalid
		d.Winner = m.Winner
		d.LiquidityA = FormatShares(m.LiquidityA, true)
		d.LiquidityB = FormatShares(m.LiquidityB, true)

		remaining := m.EndTime - st.Now
		d.TradingOpen = !m.Resolved && remaining > 0
		d.Countdown = FormatCountdown(remaining)

		d.CanClaim = canClaim(m, snap.Position)
	}

	d.NeedsApproval = needsApproval(snap.Allowance, st.Amount)

	if snap.PriceA.OK {
		d.PriceA = FormatPrice(snap.PriceA.Data)
	}
	if snap.PriceB.OK {
		d.PriceB = FormatPrice(snap.PriceB.Data)
	}

	d.Action = chooseAction(d, st)
	return d
}

// needsApproval compares allowance against the intended amount. An unknown
// allowance always requires approval; an unset amount counts as zero.
func needsApproval(allowance reader.Value[*big.Int], amount *big.Int) bool {
	if !allowance.OK || allowance.Data == nil {
		return true
	}
	if amount == nil {
		amount = new(big.Int)
	}
	return allowance.Data.Cmp(amount) < 0
}

// canClaim reports whether the resolved market owes the user a payout. The
// invalid branch needs no position: an invalid market refunds whatever shares
// the claim transaction finds. For unresolved markets it is always false.
func canClaim(m domain.Market, pos reader.Value[domain.Position]) bool {
	if !m.Resolved {
		return false
	}
	if m.Invalid {
		return true
	}
	if !pos.OK {
		return false
	}
	return (m.Winner == domain.OutcomeA && pos.Data.HasShares(domain.OutcomeA)) ||
		(m.Winner == domain.OutcomeB && pos.Data.HasShares(domain.OutcomeB))
}

// chooseAction picks the single offered action. Claim and the trading actions
// are mutually exclusive because CanClaim requires Resolved while TradingOpen
// requires the opposite; Approve and Buy split on NeedsApproval.
func chooseAction(d Derived, st State) Action {
	if st.Account == (common.Address{}) || st.Pending.InFlight() {
		return ActionNone
	}
	switch {
	case d.CanClaim:
		return ActionClaim
	case d.TradingOpen && d.NeedsApproval:
		return ActionApprove
	case d.TradingOpen:
		return ActionBuy
	default:
		return ActionNone
	}
}
