package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammdesk/internal/domain"
	"github.com/alanyoungcy/ammdesk/internal/session"
)

var testSpender = common.HexToAddress("0x00000000000000000000000000000000000000b2")

// fakeWriter scripts the signer and confirmation outcomes.
type fakeWriter struct {
	submitErr  error
	confirmErr error
	// confirmGate, when non-nil, blocks WaitConfirmed until closed.
	confirmGate chan struct{}
}

func (f *fakeWriter) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	return common.HexToHash("0x01"), nil
}

func (f *fakeWriter) Buy(ctx context.Context, id uint64, outcome domain.Outcome, amountIn *big.Int) (common.Hash, error) {
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	return common.HexToHash("0x02"), nil
}

func (f *fakeWriter) Claim(ctx context.Context, id uint64) (common.Hash, error) {
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	return common.HexToHash("0x03"), nil
}

func (f *fakeWriter) WaitConfirmed(ctx context.Context, hash common.Hash) error {
	if f.confirmGate != nil {
		select {
		case <-f.confirmGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.confirmErr
}

func newTestOrchestrator(t *testing.T, w domain.LedgerWriter) (*Orchestrator, chan session.Event) {
	t.Helper()
	events := make(chan session.Event, 32)
	o := New(w, testSpender, nil, func(ev session.Event) { events <- ev }, slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	o.Start(ctx)
	return o, events
}

func awaitEvent[E session.Event](t *testing.T, events <-chan session.Event) E {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if typed, ok := ev.(E); ok {
				return typed
			}
		case <-deadline:
			var zero E
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func TestNoSigner(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	if _, err := o.Approve(context.Background()); !errors.Is(err, domain.ErrNoSigner) {
		t.Fatalf("err = %v, want ErrNoSigner", err)
	}
}

func TestBuyValidation(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeWriter{})

	if _, err := o.Buy(context.Background(), 1, domain.OutcomeA, nil); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("nil amount err = %v, want ErrInvalidAmount", err)
	}
	if _, err := o.Buy(context.Background(), 1, domain.OutcomeA, big.NewInt(0)); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("zero amount err = %v, want ErrInvalidAmount", err)
	}
	if _, err := o.Buy(context.Background(), 1, domain.OutcomeNone, big.NewInt(5)); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("bad outcome err = %v, want ErrInvalidAmount", err)
	}
}

func TestSingleInFlightSlot(t *testing.T) {
	gate := make(chan struct{})
	o, events := newTestOrchestrator(t, &fakeWriter{confirmGate: gate})

	if _, err := o.Approve(context.Background()); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	awaitEvent[session.TxAccepted](t, events)

	if _, err := o.Buy(context.Background(), 1, domain.OutcomeA, big.NewInt(10)); !errors.Is(err, domain.ErrTxInFlight) {
		t.Fatalf("second submission err = %v, want ErrTxInFlight", err)
	}

	close(gate)
	awaitEvent[session.TxConfirmed](t, events)

	// Slot released: the next submission passes the guard.
	if _, err := o.Buy(context.Background(), 1, domain.OutcomeA, big.NewInt(10)); err != nil {
		t.Fatalf("submission after confirm: %v", err)
	}
}

func TestRejectedSubmission(t *testing.T) {
	o, events := newTestOrchestrator(t, &fakeWriter{submitErr: errors.New("user denied")})

	tx, err := o.Buy(context.Background(), 4, domain.OutcomeB, big.NewInt(100))
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}

	awaitEvent[session.TxSubmitted](t, events)
	rejected := awaitEvent[session.TxRejected](t, events)

	if tx.Status != domain.TxStatusRejected {
		t.Fatalf("Status = %s, want rejected", tx.Status)
	}
	if !strings.HasPrefix(rejected.Tx.Error, "Buy failed") {
		t.Fatalf("Error = %q, want prefixed per-action message", rejected.Tx.Error)
	}
	if !strings.Contains(rejected.Tx.Error, "user denied") {
		t.Fatalf("Error = %q, want the signer reason surfaced", rejected.Tx.Error)
	}
	if o.Pending().InFlight() {
		t.Fatal("rejected submission must release the slot")
	}
}

func TestConfirmedTransaction(t *testing.T) {
	o, events := newTestOrchestrator(t, &fakeWriter{})

	if _, err := o.Claim(context.Background(), 9); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	awaitEvent[session.TxSubmitted](t, events)
	accepted := awaitEvent[session.TxAccepted](t, events)
	if accepted.Tx.Status != domain.TxStatusAwaiting {
		t.Fatalf("Status after hash = %s, want awaiting_confirmation", accepted.Tx.Status)
	}
	if accepted.Tx.Hash == (common.Hash{}) {
		t.Fatal("accepted transaction must carry its hash")
	}

	confirmed := awaitEvent[session.TxConfirmed](t, events)
	if confirmed.Tx.Status != domain.TxStatusConfirmed {
		t.Fatalf("Status = %s, want confirmed", confirmed.Tx.Status)
	}
	if confirmed.Tx.Error != "" {
		t.Fatalf("Error = %q, want empty on success", confirmed.Tx.Error)
	}
}

func TestRevertedTransaction(t *testing.T) {
	o, events := newTestOrchestrator(t, &fakeWriter{confirmErr: errors.New("execution reverted")})

	if _, err := o.Approve(context.Background()); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	failed := awaitEvent[session.TxFailed](t, events)
	if failed.Tx.Status != domain.TxStatusFailed {
		t.Fatalf("Status = %s, want failed", failed.Tx.Status)
	}
	if !strings.HasPrefix(failed.Tx.Error, "Approval failed") {
		t.Fatalf("Error = %q, want prefixed per-action message", failed.Tx.Error)
	}
	if !strings.Contains(failed.Tx.Error, "execution reverted") {
		t.Fatalf("Error = %q, want the ledger reason surfaced", failed.Tx.Error)
	}
	if o.Pending().InFlight() {
		t.Fatal("failed transaction must release the slot")
	}
}

func TestAbandonedSessionStopsWaiting(t *testing.T) {
	gate := make(chan struct{})
	events := make(chan session.Event, 32)
	o := New(&fakeWriter{confirmGate: gate}, testSpender, nil, func(ev session.Event) { events <- ev }, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	o.Start(ctx)

	if _, err := o.Approve(context.Background()); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	awaitEvent[session.TxAccepted](t, events)

	cancel()
	time.Sleep(50 * time.Millisecond)

	// No terminal event may arrive after the session ended.
	select {
	case ev := <-events:
		switch ev.(type) {
		case session.TxConfirmed, session.TxFailed:
			t.Fatalf("terminal event %T after session end", ev)
		}
	default:
	}
}
