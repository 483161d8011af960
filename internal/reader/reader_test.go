package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ammdesk/internal/domain"
)

var (
	testOwner   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testSpender = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

// fakeLedger lets each query kind succeed or fail independently.
type fakeLedger struct {
	AllowanceFn   func(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	MarketCountFn func(ctx context.Context) (uint64, error)
	MarketFn      func(ctx context.Context, id uint64) (domain.Market, error)
	PositionFn    func(ctx context.Context, id uint64, user common.Address) (domain.Position, error)
	PriceFn       func(ctx context.Context, id uint64, outcome domain.Outcome) (*big.Int, error)
}

var errNotStubbed = errors.New("not stubbed")

func (f *fakeLedger) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	if f.AllowanceFn == nil {
		return nil, errNotStubbed
	}
	return f.AllowanceFn(ctx, owner, spender)
}

func (f *fakeLedger) MarketCount(ctx context.Context) (uint64, error) {
	if f.MarketCountFn == nil {
		return 0, errNotStubbed
	}
	return f.MarketCountFn(ctx)
}

func (f *fakeLedger) Market(ctx context.Context, id uint64) (domain.Market, error) {
	if f.MarketFn == nil {
		return domain.Market{}, errNotStubbed
	}
	return f.MarketFn(ctx, id)
}

func (f *fakeLedger) Position(ctx context.Context, id uint64, user common.Address) (domain.Position, error) {
	if f.PositionFn == nil {
		return domain.Position{}, errNotStubbed
	}
	return f.PositionFn(ctx, id, user)
}

func (f *fakeLedger) Price(ctx context.Context, id uint64, outcome domain.Outcome) (*big.Int, error) {
	if f.PriceFn == nil {
		return nil, errNotStubbed
	}
	return f.PriceFn(ctx, id, outcome)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func waitFor(t *testing.T, ch <-chan Kind, want Kind) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case kind := <-ch:
			if kind == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s update", want)
		}
	}
}

func TestSnapshotUnavailableBeforeFirstFetch(t *testing.T) {
	s := New(&fakeLedger{}, nil, testOwner, testSpender, testLogger())
	snap := s.Snapshot(0)

	if snap.Allowance.OK || snap.Market.OK || snap.Position.OK || snap.PriceA.OK || snap.PriceB.OK {
		t.Fatalf("values reported OK before any fetch: %+v", snap)
	}
}

func TestQuerySupersession(t *testing.T) {
	t.Run("late completion of an old trigger is dropped", func(t *testing.T) {
		q := &query[int]{}
		g1 := q.begin()
		g2 := q.begin()

		if !q.complete(g2, 22) {
			t.Fatal("newest trigger must land")
		}
		if q.complete(g1, 11) {
			t.Fatal("older trigger landed after a newer one")
		}
		if v := q.get(); v.Data != 22 {
			t.Fatalf("Data = %d, want 22", v.Data)
		}
	})

	t.Run("in-order completions both land", func(t *testing.T) {
		q := &query[int]{}
		g1 := q.begin()
		g2 := q.begin()

		if !q.complete(g1, 11) {
			t.Fatal("first completion must land")
		}
		if !q.complete(g2, 22) {
			t.Fatal("second completion must land")
		}
		v := q.get()
		if v.Data != 22 {
			t.Fatalf("Data = %d, want 22", v.Data)
		}
		if v.Version != 2 {
			t.Fatalf("Version = %d, want 2", v.Version)
		}
	})
}

func TestQuerySeed(t *testing.T) {
	q := &query[int]{}
	q.seed(7)

	v := q.get()
	if !v.OK || !v.Warm || v.Data != 7 {
		t.Fatalf("seeded value = %+v, want warm OK 7", v)
	}

	gen := q.begin()
	q.complete(gen, 9)
	q.seed(7)

	v = q.get()
	if v.Warm || v.Data != 9 {
		t.Fatalf("seed overwrote a fetched value: %+v", v)
	}
}

func TestRefreshIndependence(t *testing.T) {
	// The market read fails while prices keep flowing; one query's failure
	// must not block the other's delivery.
	ledger := &fakeLedger{
		MarketFn: func(ctx context.Context, id uint64) (domain.Market, error) {
			return domain.Market{}, errors.New("rpc unavailable")
		},
		PriceFn: func(ctx context.Context, id uint64, outcome domain.Outcome) (*big.Int, error) {
			return big.NewInt(int64(outcome)), nil
		},
	}
	s := New(ledger, nil, testOwner, testSpender, testLogger())

	updates := make(chan Kind, 16)
	s.SetOnUpdate(func(kind Kind, marketID uint64) { updates <- kind })

	s.RefreshMarket(context.Background(), 0)
	s.RefreshPrices(context.Background(), 0)

	// RefreshPrices fans out one fetch per outcome and each notifies on its
	// own; both must land before the snapshot carries both prices.
	waitFor(t, updates, KindPrice)
	waitFor(t, updates, KindPrice)

	snap := s.Snapshot(0)
	if snap.Market.OK {
		t.Fatal("failed market read must not land a value")
	}
	if !snap.PriceA.OK || !snap.PriceB.OK {
		t.Fatalf("prices did not land: %+v", snap)
	}
	if snap.PriceA.Data.Int64() != int64(domain.OutcomeA) {
		t.Fatalf("PriceA = %v, want %d", snap.PriceA.Data, domain.OutcomeA)
	}
}

func TestRefreshAllowanceSignerless(t *testing.T) {
	called := false
	ledger := &fakeLedger{
		AllowanceFn: func(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
			called = true
			return big.NewInt(1), nil
		},
	}
	s := New(ledger, nil, common.Address{}, testSpender, testLogger())
	s.RefreshAllowance(context.Background())

	time.Sleep(50 * time.Millisecond)
	if called {
		t.Fatal("signerless session must not query allowance")
	}
	if s.Snapshot(0).Allowance.OK {
		t.Fatal("allowance must stay unavailable without a signer")
	}
}

func TestBootstrapAndCatalog(t *testing.T) {
	ledger := &fakeLedger{
		AllowanceFn: func(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
			return big.NewInt(5_000_000), nil
		},
		MarketCountFn: func(ctx context.Context) (uint64, error) {
			return 3, nil
		},
		MarketFn: func(ctx context.Context, id uint64) (domain.Market, error) {
			return domain.Market{ID: id, Question: "q", EndTime: 100}, nil
		},
		PositionFn: func(ctx context.Context, id uint64, user common.Address) (domain.Position, error) {
			return domain.Position{SharesA: big.NewInt(1), SharesB: big.NewInt(0)}, nil
		},
		PriceFn: func(ctx context.Context, id uint64, outcome domain.Outcome) (*big.Int, error) {
			return big.NewInt(10), nil
		},
	}
	s := New(ledger, nil, testOwner, testSpender, testLogger())

	if err := s.Bootstrap(context.Background(), 1); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	snap := s.Snapshot(1)
	if !snap.Allowance.OK || snap.Allowance.Data.Int64() != 5_000_000 {
		t.Fatalf("allowance = %+v", snap.Allowance)
	}
	if !snap.Count.OK || snap.Count.Data != 3 {
		t.Fatalf("count = %+v", snap.Count)
	}
	if !snap.Market.OK || snap.Market.Data.ID != 1 {
		t.Fatalf("market = %+v", snap.Market)
	}
	if !snap.Position.OK || !snap.Position.Data.HasShares(domain.OutcomeA) {
		t.Fatalf("position = %+v", snap.Position)
	}
	if !snap.PriceA.OK || !snap.PriceB.OK {
		t.Fatalf("prices = %+v %+v", snap.PriceA, snap.PriceB)
	}

	markets := s.Markets()
	if len(markets) != 3 {
		t.Fatalf("catalog size = %d, want 3", len(markets))
	}
	for id, v := range markets {
		if !v.OK || v.Data.ID != uint64(id) {
			t.Fatalf("catalog entry %d = %+v", id, v)
		}
	}
}

func TestWarmStartSeedsDisplayValuesOnly(t *testing.T) {
	cache := &fakeCache{
		markets: map[uint64]domain.Market{1: {ID: 1, Question: "warm"}},
		prices:  map[string]*big.Int{"1/1": big.NewInt(3), "1/2": big.NewInt(4)},
	}
	s := New(&fakeLedger{}, cache, testOwner, testSpender, testLogger())
	s.WarmStart(context.Background(), []uint64{1})

	snap := s.Snapshot(1)
	if !snap.Market.OK || !snap.Market.Warm {
		t.Fatalf("market not warm-seeded: %+v", snap.Market)
	}
	if !snap.PriceA.OK || !snap.PriceA.Warm {
		t.Fatalf("price not warm-seeded: %+v", snap.PriceA)
	}
	if snap.Allowance.OK || snap.Position.OK {
		t.Fatal("allowance and position must never come from the cache")
	}
}

type fakeCache struct {
	markets map[uint64]domain.Market
	prices  map[string]*big.Int
}

func (c *fakeCache) SetMarket(ctx context.Context, m domain.Market) error { return nil }

func (c *fakeCache) GetMarket(ctx context.Context, id uint64) (domain.Market, error) {
	m, ok := c.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *fakeCache) SetPrice(ctx context.Context, id uint64, o domain.Outcome, p *big.Int) error {
	return nil
}

func (c *fakeCache) GetPrice(ctx context.Context, id uint64, o domain.Outcome) (*big.Int, error) {
	p, ok := c.prices[priceCacheKey(id, o)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func priceCacheKey(id uint64, o domain.Outcome) string {
	return fmt.Sprintf("%d/%d", id, o)
}
