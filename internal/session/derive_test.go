package session

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammdesk/internal/domain"
	"github.com/alanyoungcy/ammdesk/internal/reader"
)

var testAccount = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func okVal[T any](data T) reader.Value[T] {
	return reader.Value[T]{Data: data, OK: true}
}

func openMarket(endTime int64) domain.Market {
	return domain.Market{
		ID:       1,
		Question: "Will it rain tomorrow?",
		EndTime:  endTime,
	}
}

func baseSnapshot(m domain.Market) reader.Snapshot {
	return reader.Snapshot{
		Allowance: okVal(big.NewInt(1_000_000)),
		Market:    okVal(m),
		Position:  okVal(domain.Position{SharesA: big.NewInt(0), SharesB: big.NewInt(0)}),
		PriceA:    okVal(big.NewInt(600000000000000000)),
		PriceB:    okVal(big.NewInt(400000000000000000)),
	}
}

func baseState() State {
	return State{
		Account:  testAccount,
		Selected: 1,
		Amount:   big.NewInt(100),
		Outcome:  domain.OutcomeA,
		Now:      1_000_000,
	}
}

func TestDeriveTradingOpenBoundary(t *testing.T) {
	tests := []struct {
		name      string
		endTime   int64
		resolved  bool
		wantOpen  bool
		wantClock string
	}{
		{"one second left", 1_000_001, false, true, "00:00:01"},
		{"exactly at end time", 1_000_000, false, false, "00:00:00"},
		{"past end time", 999_000, false, false, "00:00:00"},
		{"resolved overrides remaining time", 1_003_661, true, false, "01:01:01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := openMarket(tt.endTime)
			m.Resolved = tt.resolved
			d := Derive(baseSnapshot(m), baseState())
			if d.TradingOpen != tt.wantOpen {
				t.Fatalf("TradingOpen = %v, want %v", d.TradingOpen, tt.wantOpen)
			}
			if d.Countdown != tt.wantClock {
				t.Fatalf("Countdown = %q, want %q", d.Countdown, tt.wantClock)
			}
		})
	}
}

func TestDeriveUnknownMarket(t *testing.T) {
	snap := baseSnapshot(openMarket(2_000_000))
	snap.Market = reader.Value[domain.Market]{}
	d := Derive(snap, baseState())

	if d.MarketKnown {
		t.Fatal("MarketKnown = true with no market fetched")
	}
	if d.TradingOpen {
		t.Fatal("TradingOpen = true with no market fetched")
	}
	if d.Countdown != Placeholder {
		t.Fatalf("Countdown = %q, want placeholder", d.Countdown)
	}
	if d.Action != ActionNone {
		t.Fatalf("Action = %q, want none", d.Action)
	}
}

func TestNeedsApproval(t *testing.T) {
	tests := []struct {
		name      string
		allowance reader.Value[*big.Int]
		amount    *big.Int
		want      bool
	}{
		{"unknown allowance requires approval", reader.Value[*big.Int]{}, big.NewInt(1), true},
		{"allowance below amount", okVal(big.NewInt(50)), big.NewInt(100), true},
		{"allowance equal to amount", okVal(big.NewInt(100)), big.NewInt(100), false},
		{"allowance above amount", okVal(big.NewInt(200)), big.NewInt(100), false},
		{"nil amount counts as zero", okVal(big.NewInt(0)), nil, false},
		{"unknown allowance with nil amount", reader.Value[*big.Int]{}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsApproval(tt.allowance, tt.amount); got != tt.want {
				t.Fatalf("needsApproval = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanClaim(t *testing.T) {
	withShares := okVal(domain.Position{SharesA: big.NewInt(10), SharesB: big.NewInt(0)})
	noShares := okVal(domain.Position{SharesA: big.NewInt(0), SharesB: big.NewInt(0)})

	tests := []struct {
		name string
		m    domain.Market
		pos  reader.Value[domain.Position]
		want bool
	}{
		{"unresolved never claimable", domain.Market{Resolved: false}, withShares, false},
		{"invalid needs no position", domain.Market{Resolved: true, Invalid: true}, reader.Value[domain.Position]{}, true},
		{"winner with shares", domain.Market{Resolved: true, Winner: domain.OutcomeA}, withShares, true},
		{"winner without shares", domain.Market{Resolved: true, Winner: domain.OutcomeA}, noShares, false},
		{"loser side shares only", domain.Market{Resolved: true, Winner: domain.OutcomeB}, withShares, false},
		{"winner but position unknown", domain.Market{Resolved: true, Winner: domain.OutcomeA}, reader.Value[domain.Position]{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canClaim(tt.m, tt.pos); got != tt.want {
				t.Fatalf("canClaim = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveSingleAction(t *testing.T) {
	t.Run("open market with allowance offers buy", func(t *testing.T) {
		d := Derive(baseSnapshot(openMarket(2_000_000)), baseState())
		if d.Action != ActionBuy {
			t.Fatalf("Action = %q, want buy", d.Action)
		}
	})

	t.Run("open market needing approval offers approve", func(t *testing.T) {
		snap := baseSnapshot(openMarket(2_000_000))
		snap.Allowance = okVal(big.NewInt(0))
		d := Derive(snap, baseState())
		if d.Action != ActionApprove {
			t.Fatalf("Action = %q, want approve", d.Action)
		}
	})

	t.Run("claim wins over trading actions", func(t *testing.T) {
		m := openMarket(2_000_000)
		m.Resolved = true
		m.Winner = domain.OutcomeA
		snap := baseSnapshot(m)
		snap.Position = okVal(domain.Position{SharesA: big.NewInt(5)})
		d := Derive(snap, baseState())
		if d.Action != ActionClaim {
			t.Fatalf("Action = %q, want claim", d.Action)
		}
		if d.TradingOpen {
			t.Fatal("resolved market must not be open for trading")
		}
	})

	t.Run("signerless session offers nothing", func(t *testing.T) {
		st := baseState()
		st.Account = common.Address{}
		d := Derive(baseSnapshot(openMarket(2_000_000)), st)
		if d.Action != ActionNone {
			t.Fatalf("Action = %q, want none", d.Action)
		}
	})

	t.Run("in-flight transaction suspends actions", func(t *testing.T) {
		st := baseState()
		st.Pending = &domain.PendingTransaction{Status: domain.TxStatusAwaiting}
		d := Derive(baseSnapshot(openMarket(2_000_000)), st)
		if d.Action != ActionNone {
			t.Fatalf("Action = %q, want none while a transaction is pending", d.Action)
		}
	})

	t.Run("terminal transaction releases actions", func(t *testing.T) {
		st := baseState()
		st.Pending = &domain.PendingTransaction{Status: domain.TxStatusConfirmed}
		d := Derive(baseSnapshot(openMarket(2_000_000)), st)
		if d.Action != ActionBuy {
			t.Fatalf("Action = %q, want buy after the pending tx resolved", d.Action)
		}
	})
}
