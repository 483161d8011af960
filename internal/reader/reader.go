// Package reader maintains the client's read-through view of remote ledger
// state: allowance, market catalog, user positions, and AMM prices.
//
// Every query kind is cached independently so one kind's failure or staleness
// never blocks delivery of another's current value. Each cached value is
// versioned; a refresh only lands if no later-triggered refresh for the same
// query has landed already, so duplicate in-flight refreshes resolve
// deterministically regardless of network completion order.
package reader

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/ammdesk/internal/domain"
)

// Kind names a query kind for update notifications.
type Kind string

const (
	KindAllowance Kind = "allowance"
	KindMarkets   Kind = "markets"
	KindMarket    Kind = "market"
	KindPosition  Kind = "position"
	KindPrice     Kind = "price"
)

// Value is the latest known result of one query. OK is false until the first
// successful fetch, which is the explicit "not yet available" marker; a zero
// Data with OK false must never be confused with a real zero.
type Value[T any] struct {
	Data      T
	Version   uint64
	FetchedAt time.Time
	OK        bool
	// Warm marks a value seeded from the snapshot cache rather than fetched
	// from the ledger. Warm values are for display only.
	Warm bool
}

// query is one independently-versioned cached value. issued counts refresh
// triggers; applied records the trigger generation of the stored value.
// A completion with a generation below applied lost the race to a
// later-triggered refresh and is dropped.
type query[T any] struct {
	mu      sync.Mutex
	val     Value[T]
	issued  uint64
	applied uint64
}

func (q *query[T]) begin() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.issued++
	return q.issued
}

func (q *query[T]) complete(gen uint64, data T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if gen < q.applied {
		return false
	}
	q.applied = gen
	q.val = Value[T]{
		Data:      data,
		Version:   q.val.Version + 1,
		FetchedAt: time.Now(),
		OK:        true,
	}
	return true
}

// seed installs a warm value without consuming a generation. It is a no-op
// once any real fetch has landed.
func (q *query[T]) seed(data T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.val.OK {
		return
	}
	q.val = Value[T]{Data: data, OK: true, Warm: true}
}

func (q *query[T]) get() Value[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.val
}

// UpdateFunc is invoked after a refresh lands, on the fetch goroutine.
type UpdateFunc func(kind Kind, marketID uint64)

// Service caches the latest fetched value for every query the session needs.
type Service struct {
	ledger  domain.LedgerReader
	cache   domain.SnapshotCache // optional, may be nil
	owner   common.Address       // zero when the session is signerless
	spender common.Address       // the AMM contract (token spender)
	logger  *slog.Logger

	onUpdate UpdateFunc

	allowance query[*big.Int]
	count     query[uint64]

	mu        sync.Mutex
	markets   map[uint64]*query[domain.Market]
	positions map[uint64]*query[domain.Position]
	prices    map[priceKey]*query[*big.Int]
}

type priceKey struct {
	market  uint64
	outcome domain.Outcome
}

// New creates a Service. cache may be nil. onUpdate may be nil; SetOnUpdate
// installs it later (the session engine wires itself in after construction).
func New(ledger domain.LedgerReader, cache domain.SnapshotCache, owner, spender common.Address, logger *slog.Logger) *Service {
	return &Service{
		ledger:    ledger,
		cache:     cache,
		owner:     owner,
		spender:   spender,
		logger:    logger.With(slog.String("component", "reader")),
		markets:   make(map[uint64]*query[domain.Market]),
		positions: make(map[uint64]*query[domain.Position]),
		prices:    make(map[priceKey]*query[*big.Int]),
	}
}

// SetOnUpdate installs the update notification callback. Must be called
// before any refresh is triggered.
func (s *Service) SetOnUpdate(fn UpdateFunc) {
	s.onUpdate = fn
}

func (s *Service) notify(kind Kind, marketID uint64) {
	if s.onUpdate != nil {
		s.onUpdate(kind, marketID)
	}
}

func (s *Service) marketQuery(id uint64) *query[domain.Market] {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.markets[id]
	if !ok {
		q = &query[domain.Market]{}
		s.markets[id] = q
	}
	return q
}

func (s *Service) positionQuery(id uint64) *query[domain.Position] {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.positions[id]
	if !ok {
		q = &query[domain.Position]{}
		s.positions[id] = q
	}
	return q
}

func (s *Service) priceQuery(id uint64, o domain.Outcome) *query[*big.Int] {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := priceKey{market: id, outcome: o}
	q, ok := s.prices[k]
	if !ok {
		q = &query[*big.Int]{}
		s.prices[k] = q
	}
	return q
}

// WarmStart seeds market and price values from the snapshot cache so a
// restarted session has something to display before its first fetch lands.
// Allowance and positions are never seeded: they gate mutating actions and
// must come from the ledger.
func (s *Service) WarmStart(ctx context.Context, marketIDs []uint64) {
	if s.cache == nil {
		return
	}
	for _, id := range marketIDs {
		if m, err := s.cache.GetMarket(ctx, id); err == nil {
			s.marketQuery(id).seed(m)
		}
		for _, o := range []domain.Outcome{domain.OutcomeA, domain.OutcomeB} {
			if p, err := s.cache.GetPrice(ctx, id, o); err == nil {
				s.priceQuery(id, o).seed(p)
			}
		}
	}
}

// RefreshAllowance triggers an asynchronous re-read of
// allowance(owner, spender). Signerless sessions skip the call entirely.
func (s *Service) RefreshAllowance(ctx context.Context) {
	if s.owner == (common.Address{}) {
		return
	}
	gen := s.allowance.begin()
	go func() {
		amount, err := s.ledger.Allowance(ctx, s.owner, s.spender)
		if err != nil || ctx.Err() != nil {
			s.logWarn(ctx, "allowance refresh failed", err)
			return
		}
		if s.allowance.complete(gen, amount) {
			s.notify(KindAllowance, 0)
		}
	}()
}

// RefreshMarket triggers an asynchronous re-read of one market's detail.
func (s *Service) RefreshMarket(ctx context.Context, id uint64) {
	q := s.marketQuery(id)
	gen := q.begin()
	go func() {
		m, err := s.ledger.Market(ctx, id)
		if err != nil || ctx.Err() != nil {
			s.logWarn(ctx, "market refresh failed", err)
			return
		}
		if q.complete(gen, m) {
			s.writeThroughMarket(ctx, m)
			s.notify(KindMarket, id)
		}
	}()
}

// RefreshPosition triggers an asynchronous re-read of the user's position in
// one market.
func (s *Service) RefreshPosition(ctx context.Context, id uint64) {
	if s.owner == (common.Address{}) {
		return
	}
	q := s.positionQuery(id)
	gen := q.begin()
	go func() {
		p, err := s.ledger.Position(ctx, id, s.owner)
		if err != nil || ctx.Err() != nil {
			s.logWarn(ctx, "position refresh failed", err)
			return
		}
		if q.complete(gen, p) {
			s.notify(KindPosition, id)
		}
	}()
}

// RefreshPrices triggers asynchronous re-reads of both outcome prices for one
// market.
func (s *Service) RefreshPrices(ctx context.Context, id uint64) {
	for _, o := range []domain.Outcome{domain.OutcomeA, domain.OutcomeB} {
		o := o
		q := s.priceQuery(id, o)
		gen := q.begin()
		go func() {
			p, err := s.ledger.Price(ctx, id, o)
			if err != nil || ctx.Err() != nil {
				s.logWarn(ctx, "price refresh failed", err)
				return
			}
			if q.complete(gen, p) {
				s.writeThroughPrice(ctx, id, o, p)
				s.notify(KindPrice, id)
			}
		}()
	}
}

// RefreshMarkets triggers an asynchronous re-read of the market count and
// every market's detail.
func (s *Service) RefreshMarkets(ctx context.Context) {
	gen := s.count.begin()
	go func() {
		n, err := s.ledger.MarketCount(ctx)
		if err != nil || ctx.Err() != nil {
			s.logWarn(ctx, "market count refresh failed", err)
			return
		}
		if s.count.complete(gen, n) {
			s.notify(KindMarkets, 0)
		}
		for id := uint64(0); id < n; id++ {
			s.RefreshMarket(ctx, id)
		}
	}()
}

// Bootstrap fetches the initial snapshot synchronously: allowance, market
// count, every market's detail, and the selected market's position and
// prices. Individual failures are logged and tolerated; the corresponding
// values simply stay unavailable.
func (s *Service) Bootstrap(ctx context.Context, selected uint64) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if s.owner == (common.Address{}) {
			return nil
		}
		gen := s.allowance.begin()
		amount, err := s.ledger.Allowance(gctx, s.owner, s.spender)
		if err != nil {
			s.logWarn(gctx, "bootstrap allowance failed", err)
			return nil
		}
		s.allowance.complete(gen, amount)
		return nil
	})

	g.Go(func() error {
		gen := s.count.begin()
		n, err := s.ledger.MarketCount(gctx)
		if err != nil {
			s.logWarn(gctx, "bootstrap market count failed", err)
			return nil
		}
		s.count.complete(gen, n)

		mg, mctx := errgroup.WithContext(gctx)
		mg.SetLimit(8)
		for id := uint64(0); id < n; id++ {
			id := id
			mg.Go(func() error {
				q := s.marketQuery(id)
				mgen := q.begin()
				m, err := s.ledger.Market(mctx, id)
				if err != nil {
					s.logWarn(mctx, "bootstrap market failed", err)
					return nil
				}
				if q.complete(mgen, m) {
					s.writeThroughMarket(mctx, m)
				}
				return nil
			})
		}
		return mg.Wait()
	})

	g.Go(func() error {
		if s.owner == (common.Address{}) {
			return nil
		}
		q := s.positionQuery(selected)
		gen := q.begin()
		p, err := s.ledger.Position(gctx, selected, s.owner)
		if err != nil {
			s.logWarn(gctx, "bootstrap position failed", err)
			return nil
		}
		q.complete(gen, p)
		return nil
	})

	for _, o := range []domain.Outcome{domain.OutcomeA, domain.OutcomeB} {
		o := o
		g.Go(func() error {
			q := s.priceQuery(selected, o)
			gen := q.begin()
			p, err := s.ledger.Price(gctx, selected, o)
			if err != nil {
				s.logWarn(gctx, "bootstrap price failed", err)
				return nil
			}
			if q.complete(gen, p) {
				s.writeThroughPrice(gctx, selected, o, p)
			}
			return nil
		})
	}

	return g.Wait()
}

// Snapshot is a consistent copy of the latest values relevant to one selected
// market. Each field is independently versioned; consumers must not assume
// the fields were fetched together.
type Snapshot struct {
	Allowance Value[*big.Int]
	Count     Value[uint64]
	Market    Value[domain.Market]
	Position  Value[domain.Position]
	PriceA    Value[*big.Int]
	PriceB    Value[*big.Int]
}

// Snapshot returns the latest values for the selected market.
func (s *Service) Snapshot(selected uint64) Snapshot {
	return Snapshot{
		Allowance: s.allowance.get(),
		Count:     s.count.get(),
		Market:    s.marketQuery(selected).get(),
		Position:  s.positionQuery(selected).get(),
		PriceA:    s.priceQuery(selected, domain.OutcomeA).get(),
		PriceB:    s.priceQuery(selected, domain.OutcomeB).get(),
	}
}

// Markets returns the latest known detail for every market id below the last
// known count, in id order. Ids with no landed value yet yield OK == false
// entries so the catalog keeps stable positions.
func (s *Service) Markets() []Value[domain.Market] {
	n := s.count.get()
	if !n.OK {
		return nil
	}
	out := make([]Value[domain.Market], 0, n.Data)
	for id := uint64(0); id < n.Data; id++ {
		out = append(out, s.marketQuery(id).get())
	}
	return out
}

func (s *Service) writeThroughMarket(ctx context.Context, m domain.Market) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetMarket(ctx, m); err != nil && ctx.Err() == nil {
		s.logger.WarnContext(ctx, "snapshot cache write failed",
			slog.Uint64("market", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) writeThroughPrice(ctx context.Context, id uint64, o domain.Outcome, p *big.Int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPrice(ctx, id, o, p); err != nil && ctx.Err() == nil {
		s.logger.WarnContext(ctx, "snapshot cache price write failed",
			slog.Uint64("market", id),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, err error) {
	if ctx.Err() != nil {
		return // session ended; abandoned reads are not errors
	}
	if err == nil {
		return
	}
	s.logger.WarnContext(ctx, msg, slog.String("error", err.Error()))
}
