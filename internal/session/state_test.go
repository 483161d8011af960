package session

import (
	"math/big"
	"testing"

	"github.com/alanyoungcy/ammdesk/internal/domain"
)

func hasEffect[E Effect](effects []Effect) bool {
	for _, e := range effects {
		if _, ok := e.(E); ok {
			return true
		}
	}
	return false
}

func TestReduceTick(t *testing.T) {
	st, effects := Reduce(State{}, Tick{Now: 1234})
	if st.Now != 1234 {
		t.Fatalf("Now = %d, want 1234", st.Now)
	}
	if !hasEffect[Publish](effects) {
		t.Fatal("tick must republish the view")
	}
}

func TestReduceIntentChanged(t *testing.T) {
	st, _ := Reduce(State{}, IntentChanged{Amount: big.NewInt(500), Outcome: domain.OutcomeB})
	if st.Amount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("Amount = %v, want 500", st.Amount)
	}
	if st.Outcome != domain.OutcomeB {
		t.Fatalf("Outcome = %v, want OutcomeB", st.Outcome)
	}
}

func TestReduceMarketSelected(t *testing.T) {
	t.Run("same market is a no-op", func(t *testing.T) {
		st, effects := Reduce(State{Selected: 3}, MarketSelected{ID: 3})
		if st.Selected != 3 || len(effects) != 0 {
			t.Fatalf("same-market select produced effects %v", effects)
		}
	})

	t.Run("new market refreshes detail, position, prices", func(t *testing.T) {
		st, effects := Reduce(State{Selected: 3, LastError: "stale"}, MarketSelected{ID: 7})
		if st.Selected != 7 {
			t.Fatalf("Selected = %d, want 7", st.Selected)
		}
		if st.LastError != "" {
			t.Fatal("market switch must clear the last error")
		}
		if !hasEffect[RefreshMarket](effects) || !hasEffect[RefreshPosition](effects) || !hasEffect[RefreshPrices](effects) {
			t.Fatalf("missing refresh effects: %v", effects)
		}
	})
}

func TestReduceTxConfirmed(t *testing.T) {
	t.Run("approve refreshes allowance only", func(t *testing.T) {
		tx := domain.PendingTransaction{Kind: domain.TxKindApprove, Status: domain.TxStatusConfirmed}
		_, effects := Reduce(State{}, TxConfirmed{Tx: tx})
		if !hasEffect[RefreshAllowance](effects) {
			t.Fatal("confirmed approve must refresh allowance")
		}
		if hasEffect[RefreshPosition](effects) {
			t.Fatal("approve moves no shares, position refresh not expected")
		}
	})

	t.Run("buy refreshes allowance, position, market, prices", func(t *testing.T) {
		tx := domain.PendingTransaction{Kind: domain.TxKindBuy, MarketID: 2, Status: domain.TxStatusConfirmed}
		st, effects := Reduce(State{}, TxConfirmed{Tx: tx})
		if st.Pending == nil || st.Pending.Status != domain.TxStatusConfirmed {
			t.Fatalf("Pending = %+v, want confirmed tx", st.Pending)
		}
		for _, want := range []bool{
			hasEffect[RefreshAllowance](effects),
			hasEffect[RefreshPosition](effects),
			hasEffect[RefreshMarket](effects),
			hasEffect[RefreshPrices](effects),
			hasEffect[Publish](effects),
		} {
			if !want {
				t.Fatalf("confirmed buy missing refresh effects: %v", effects)
			}
		}
	})
}

func TestReduceTxRejected(t *testing.T) {
	tx := domain.PendingTransaction{
		Kind:   domain.TxKindBuy,
		Status: domain.TxStatusRejected,
		Error:  "Buy failed: user denied",
	}
	st, _ := Reduce(State{}, TxRejected{Tx: tx})
	if st.LastError != tx.Error {
		t.Fatalf("LastError = %q, want %q", st.LastError, tx.Error)
	}
	if st.Pending.InFlight() {
		t.Fatal("rejected transaction must release the slot")
	}
}
