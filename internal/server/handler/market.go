package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/ammdesk/internal/domain"
	"github.com/alanyoungcy/ammdesk/internal/reader"
	"github.com/alanyoungcy/ammdesk/internal/session"
)

// MarketHandler serves the market catalog endpoints.
type MarketHandler struct {
	reader *reader.Service
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler backed by the read-through reader.
func NewMarketHandler(rd *reader.Service, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{reader: rd, logger: logger}
}

// marketSummary is the catalog row for one market.
type marketSummary struct {
	ID          uint64 `json:"id"`
	Known       bool   `json:"known"`
	Question    string `json:"question,omitempty"`
	TradingOpen bool   `json:"trading_open"`
	Countdown   string `json:"countdown"`
	Resolved    bool   `json:"resolved"`
	Invalid     bool   `json:"invalid"`
	Winner      string `json:"winner,omitempty"`
	LiquidityA  string `json:"liquidity_a,omitempty"`
	LiquidityB  string `json:"liquidity_b,omitempty"`
}

// summarize builds the catalog row for one market id. Markets whose detail
// has not landed yet render with known == false so the catalog keeps stable
// ids.
func summarize(id uint64, v reader.Value[domain.Market], now int64) marketSummary {
	s := marketSummary{ID: id, Countdown: session.Placeholder}
	if !v.OK {
		return s
	}
	m := v.Data
	remaining := m.EndTime - now
	s.Known = true
	s.Question = m.Question
	s.TradingOpen = !m.Resolved && remaining > 0
	s.Countdown = session.FormatCountdown(remaining)
	s.Resolved = m.Resolved
	s.Invalid = m.Invalid
	if m.Resolved && m.Winner.Valid() {
		s.Winner = m.Winner.String()
	}
	s.LiquidityA = session.FormatShares(m.LiquidityA, true)
	s.LiquidityB = session.FormatShares(m.LiquidityB, true)
	return s
}

// ListMarkets returns every known market with its resolved/countdown summary.
// GET /api/markets
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	now := time.Now().Unix()
	values := h.reader.Markets()

	out := make([]marketSummary, 0, len(values))
	for id, v := range values {
		out = append(out, summarize(uint64(id), v, now))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"markets": out,
		"count":   len(out),
	})
}

// GetMarket returns one catalog row.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	values := h.reader.Markets()
	if id >= uint64(len(values)) {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}
	writeJSON(w, http.StatusOK, summarize(id, values[id], time.Now().Unix()))
}
