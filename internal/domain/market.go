package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// Outcome identifies one side of a binary market, using the same encoding as
// the AMM contract's winningOutcome field.
type Outcome uint8

const (
	OutcomeNone Outcome = 0
	OutcomeA    Outcome = 1 // "Yes"
	OutcomeB    Outcome = 2 // "No"
)

// String returns the display label for an outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeA:
		return "YES"
	case OutcomeB:
		return "NO"
	default:
		return "NONE"
	}
}

// Valid reports whether o names a tradeable outcome.
func (o Outcome) Valid() bool {
	return o == OutcomeA || o == OutcomeB
}

// ParseOutcome maps a user-facing outcome label to its contract encoding.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "a":
		return OutcomeA, nil
	case "no", "b":
		return OutcomeB, nil
	default:
		return OutcomeNone, fmt.Errorf("unknown outcome %q", s)
	}
}

// Market is a read-through copy of one market's on-chain state. Markets are
// owned by the AMM contract; this client never mutates them directly.
//
// Resolution is terminal: once Resolved is true the (Invalid, Winner) pair
// never changes again, and while Resolved is false Winner is OutcomeNone and
// Invalid is false.
type Market struct {
	ID           uint64
	Question     string
	EndTime      int64 // unix seconds
	Resolved     bool
	Invalid      bool
	Winner       Outcome
	FeeBps       uint16
	ProtocolFees *big.Int
	LiquidityA   *big.Int
	LiquidityB   *big.Int
}

// Position holds a user's share balances in one market. Positions are mutated
// only by confirmed buy or claim transactions on the ledger.
type Position struct {
	SharesA *big.Int
	SharesB *big.Int
}

// HasShares reports whether the position holds a nonzero balance in the given
// outcome. A nil balance counts as zero.
func (p Position) HasShares(o Outcome) bool {
	switch o {
	case OutcomeA:
		return p.SharesA != nil && p.SharesA.Sign() > 0
	case OutcomeB:
		return p.SharesB != nil && p.SharesB.Sign() > 0
	default:
		return false
	}
}
