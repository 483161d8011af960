// Package session owns the trading session: a single consolidated state
// value, a pure reducer over events, the derived-view calculator, and the
// engine goroutine that ties them to the reader and the API surface.
//
// All session work is event-driven on the one engine goroutine: UI requests,
// clock ticks, and read/transaction completions all arrive as events, so no
// session field is ever mutated concurrently.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammdesk/internal/domain"
	"github.com/alanyoungcy/ammdesk/internal/reader"
)

// eventBuffer sizes the engine's inbox. Ticks arrive at 1 Hz and reads
// complete in bursts after a refresh fan-out; 256 is far above both.
const eventBuffer = 256

// Publisher receives the recomputed view after transitions that change it.
type Publisher interface {
	Publish(v View)
}

// Engine runs the session loop: it reduces events into the session state,
// executes the resulting effects, and republishes the derived view.
type Engine struct {
	reader       *reader.Service
	pub          Publisher // may be nil
	logger       *slog.Logger
	explorerHost string

	events chan Event
	done   chan struct{}

	mu    sync.RWMutex
	state State
	view  View
}

// NewEngine creates an Engine starting from initial. pub may be nil when no
// API surface is attached (status mode).
func NewEngine(rd *reader.Service, pub Publisher, explorerHost string, initial State, logger *slog.Logger) *Engine {
	e := &Engine{
		reader:       rd,
		pub:          pub,
		logger:       logger.With(slog.String("component", "session")),
		explorerHost: explorerHost,
		events:       make(chan Event, eventBuffer),
		done:         make(chan struct{}),
		state:        initial,
	}
	e.view = e.buildView(initial)

	// Completed reads re-enter the loop as events like everything else.
	rd.SetOnUpdate(func(kind reader.Kind, marketID uint64) {
		e.Dispatch(ReadCompleted{Kind: kind, MarketID: marketID})
	})
	return e
}

// Dispatch queues an event for the engine loop. Events queued after the
// session ended are dropped; an abandoned session must produce no further
// side effects.
func (e *Engine) Dispatch(ev Event) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

// Run processes events until ctx is cancelled. It always returns ctx.Err().
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.events:
			e.step(ctx, ev)
		}
	}
}

// step applies one transition and executes its effects.
func (e *Engine) step(ctx context.Context, ev Event) {
	e.mu.Lock()
	next, effects := Reduce(e.state, ev)
	e.state = next
	e.view = e.buildView(next)
	view := e.view
	e.mu.Unlock()

	for _, eff := range effects {
		switch eff := eff.(type) {
		case RefreshAllowance:
			e.reader.RefreshAllowance(ctx)
		case RefreshMarket:
			e.reader.RefreshMarket(ctx, eff.ID)
		case RefreshPosition:
			e.reader.RefreshPosition(ctx, eff.ID)
		case RefreshPrices:
			e.reader.RefreshPrices(ctx, eff.ID)
		case Publish:
			if e.pub != nil {
				e.pub.Publish(view)
			}
		}
	}
}

// View returns the latest rendered view.
func (e *Engine) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.view
}

// State returns a copy of the current session state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// View is the JSON-ready projection served over HTTP and pushed over the
// WebSocket hub.
type View struct {
	Account  string `json:"account,omitempty"`
	MarketID uint64 `json:"market_id"`

	MarketKnown bool   `json:"market_known"`
	Question    string `json:"question"`
	TradingOpen bool   `json:"trading_open"`
	Countdown   string `json:"countdown"`
	Resolved    bool   `json:"resolved"`
	Invalid     bool   `json:"invalid"`
	Winner      string `json:"winner,omitempty"`

	Amount  string `json:"amount"`
	Outcome string `json:"outcome"`

	NeedsApproval bool   `json:"needs_approval"`
	CanClaim      bool   `json:"can_claim"`
	Action        string `json:"action"`

	PriceA     string `json:"price_a"`
	PriceB     string `json:"price_b"`
	SharesA    string `json:"shares_a"`
	SharesB    string `json:"shares_b"`
	LiquidityA string `json:"liquidity_a,omitempty"`
	LiquidityB string `json:"liquidity_b,omitempty"`
	Allowance  string `json:"allowance"`

	Tx        *TxView `json:"tx,omitempty"`
	LastError string  `json:"last_error,omitempty"`
}

// TxView describes the pending (or last terminal) transaction.
type TxView struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Hash        string `json:"hash,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	ExplorerURL string `json:"explorer_url,omitempty"`
}

// buildView projects state + the reader snapshot into a View. Caller holds
// e.mu.
func (e *Engine) buildView(st State) View {
	snap := e.reader.Snapshot(st.Selected)
	d := Derive(snap, st)

	v := View{
		MarketID:      st.Selected,
		MarketKnown:   d.MarketKnown,
		Question:      d.Question,
		TradingOpen:   d.TradingOpen,
		Countdown:     d.Countdown,
		Resolved:      d.Resolved,
		Invalid:       d.Invalid,
		Amount:        Placeholder,
		Outcome:       st.Outcome.String(),
		NeedsApproval: d.NeedsApproval,
		CanClaim:      d.CanClaim,
		Action:        string(d.Action),
		PriceA:        d.PriceA,
		PriceB:        d.PriceB,
		SharesA:       d.SharesA,
		SharesB:       d.SharesB,
		LiquidityA:    d.LiquidityA,
		LiquidityB:    d.LiquidityB,
		Allowance:     Placeholder,
		LastError:     st.LastError,
	}
	if st.Account != (common.Address{}) {
		v.Account = st.Account.Hex()
	}
	if d.Winner != domain.OutcomeNone {
		v.Winner = d.Winner.String()
	}
	if st.Amount != nil {
		v.Amount = st.Amount.String()
	}
	if snap.Allowance.OK && snap.Allowance.Data != nil {
		v.Allowance = snap.Allowance.Data.String()
	}
	if st.Pending != nil {
		v.Tx = e.txView(st.Pending)
	}
	return v
}

func (e *Engine) txView(tx *domain.PendingTransaction) *TxView {
	tv := &TxView{
		ID:     tx.ID,
		Kind:   string(tx.Kind),
		Status: string(tx.Status),
		Error:  tx.Error,
	}
	if tx.Hash != (common.Hash{}) {
		tv.Hash = tx.Hash.Hex()
		tv.ExplorerURL = ExplorerURL(e.explorerHost, tx.Hash)
	}
	return tv
}

// ExplorerURL builds the informational block-explorer link for a transaction.
func ExplorerURL(host string, hash common.Hash) string {
	return fmt.Sprintf("https://%s/tx/%s", host, hash.Hex())
}
