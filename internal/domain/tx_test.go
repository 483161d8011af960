package domain

import "testing"

func TestTxStatusTerminal(t *testing.T) {
	tests := []struct {
		status TxStatus
		want   bool
	}{
		{TxStatusSubmitting, false},
		{TxStatusAwaiting, false},
		{TxStatusConfirmed, true},
		{TxStatusRejected, true},
		{TxStatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Fatalf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestInFlight(t *testing.T) {
	var none *PendingTransaction
	if none.InFlight() {
		t.Fatal("nil transaction reported in flight")
	}
	if !(&PendingTransaction{Status: TxStatusAwaiting}).InFlight() {
		t.Fatal("awaiting transaction not reported in flight")
	}
	if (&PendingTransaction{Status: TxStatusConfirmed}).InFlight() {
		t.Fatal("confirmed transaction reported in flight")
	}
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		kind TxKind
		want string
	}{
		{TxKindApprove, "Approval failed"},
		{TxKindBuy, "Buy failed"},
		{TxKindClaim, "Claim failed"},
		{TxKind("other"), "Transaction failed"},
	}
	for _, tt := range tests {
		if got := tt.kind.FailureMessage(); got != tt.want {
			t.Fatalf("%s.FailureMessage() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestParseOutcome(t *testing.T) {
	for _, s := range []string{"yes", "YES", " Yes ", "a"} {
		o, err := ParseOutcome(s)
		if err != nil || o != OutcomeA {
			t.Fatalf("ParseOutcome(%q) = %v, %v", s, o, err)
		}
	}
	for _, s := range []string{"no", "NO", "b"} {
		o, err := ParseOutcome(s)
		if err != nil || o != OutcomeB {
			t.Fatalf("ParseOutcome(%q) = %v, %v", s, o, err)
		}
	}
	if _, err := ParseOutcome("maybe"); err == nil {
		t.Fatal("ParseOutcome accepted an unknown label")
	}
}

func TestHasShares(t *testing.T) {
	p := Position{}
	if p.HasShares(OutcomeA) || p.HasShares(OutcomeB) {
		t.Fatal("empty position reported shares")
	}
}
