package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/alanyoungcy/ammdesk/internal/domain"
	"github.com/alanyoungcy/ammdesk/internal/orchestrator"
	"github.com/alanyoungcy/ammdesk/internal/session"
)

// SessionHandler serves the trading-session endpoints: the derived view, the
// trade intent, and the three mutating actions.
type SessionHandler struct {
	engine *session.Engine
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(engine *session.Engine, orch *orchestrator.Orchestrator, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{engine: engine, orch: orch, logger: logger}
}

// GetSession returns the full derived view.
// GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.View())
}

// intentRequest carries a partial intent update. Omitted fields keep their
// current value.
type intentRequest struct {
	Amount   *string `json:"amount"`    // smallest token unit, decimal string
	Outcome  *string `json:"outcome"`   // "yes" or "no"
	MarketID *uint64 `json:"market_id"` // switches the selected market
}

// UpdateIntent applies an intent edit. The engine processes it asynchronously;
// the response acknowledges acceptance, and the updated view arrives over the
// WebSocket push (or the next GET).
// PUT /api/session/intent
func (h *SessionHandler) UpdateIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	st := h.engine.State()
	amount := st.Amount
	outcome := st.Outcome

	if req.Amount != nil {
		parsed, ok := new(big.Int).SetString(*req.Amount, 10)
		if !ok || parsed.Sign() < 0 {
			writeError(w, http.StatusBadRequest, "amount must be a non-negative integer string")
			return
		}
		amount = parsed
	}
	if req.Outcome != nil {
		parsed, err := domain.ParseOutcome(*req.Outcome)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		outcome = parsed
	}

	if req.MarketID != nil {
		h.engine.Dispatch(session.MarketSelected{ID: *req.MarketID})
	}
	if req.Amount != nil || req.Outcome != nil {
		h.engine.Dispatch(session.IntentChanged{Amount: amount, Outcome: outcome})
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Approve submits the collateral approval.
// POST /api/session/approve
func (h *SessionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	tx, err := h.orch.Approve(r.Context())
	h.respondTx(w, tx, err)
}

// Buy submits a trade using the current intent.
// POST /api/session/buy
func (h *SessionHandler) Buy(w http.ResponseWriter, r *http.Request) {
	st := h.engine.State()
	tx, err := h.orch.Buy(r.Context(), st.Selected, st.Outcome, st.Amount)
	h.respondTx(w, tx, err)
}

// Claim submits a payout claim for the selected market.
// POST /api/session/claim
func (h *SessionHandler) Claim(w http.ResponseWriter, r *http.Request) {
	st := h.engine.State()
	tx, err := h.orch.Claim(r.Context(), st.Selected)
	h.respondTx(w, tx, err)
}

// respondTx maps orchestrator outcomes onto HTTP statuses. A rejected
// submission is still 202: the lifecycle outcome lives in the transaction
// record, not the HTTP status.
func (h *SessionHandler) respondTx(w http.ResponseWriter, tx domain.PendingTransaction, err error) {
	switch {
	case errors.Is(err, domain.ErrTxInFlight):
		writeError(w, http.StatusConflict, "another transaction is already in flight")
	case errors.Is(err, domain.ErrNoSigner):
		writeError(w, http.StatusPreconditionFailed, "no signing key configured")
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("transaction submit failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "transaction submit failed")
	default:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"id":     tx.ID,
			"kind":   string(tx.Kind),
			"status": string(tx.Status),
		})
	}
}
