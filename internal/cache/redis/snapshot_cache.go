package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/ammdesk/internal/domain"
)

// snapshotTTL bounds how stale a warm-start value can be. A restarted session
// older than this simply starts cold.
const snapshotTTL = 24 * time.Hour

// SnapshotCache implements domain.SnapshotCache using JSON-serialized values.
//
// Key schema:
//
//	amm:market:{id}        - JSON-encoded domain.Market
//	amm:price:{id}:{1|2}   - decimal string of the 1e18-scaled price
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.rdb}
}

func marketKey(id uint64) string {
	return fmt.Sprintf("amm:market:%d", id)
}

func priceKey(id uint64, o domain.Outcome) string {
	return fmt.Sprintf("amm:price:%d:%d", id, o)
}

// SetMarket stores one market's detail.
func (sc *SnapshotCache) SetMarket(ctx context.Context, m domain.Market) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: marshal market %d: %w", m.ID, err)
	}
	if err := sc.rdb.Set(ctx, marketKey(m.ID), data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis: set market %d: %w", m.ID, err)
	}
	return nil
}

// GetMarket retrieves one market's detail. It returns domain.ErrNotFound when
// the key does not exist.
func (sc *SnapshotCache) GetMarket(ctx context.Context, id uint64) (domain.Market, error) {
	data, err := sc.rdb.Get(ctx, marketKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %d: %w", id, err)
	}
	var m domain.Market
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %d: %w", id, err)
	}
	return m, nil
}

// SetPrice stores one outcome price.
func (sc *SnapshotCache) SetPrice(ctx context.Context, id uint64, o domain.Outcome, price *big.Int) error {
	if price == nil {
		return fmt.Errorf("redis: nil price for market %d", id)
	}
	if err := sc.rdb.Set(ctx, priceKey(id, o), price.String(), snapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis: set price %d/%s: %w", id, o, err)
	}
	return nil
}

// GetPrice retrieves one outcome price. It returns domain.ErrNotFound when
// the key does not exist.
func (sc *SnapshotCache) GetPrice(ctx context.Context, id uint64, o domain.Outcome) (*big.Int, error) {
	raw, err := sc.rdb.Get(ctx, priceKey(id, o)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get price %d/%s: %w", id, o, err)
	}
	price, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("redis: corrupt price %d/%s: %q", id, o, raw)
	}
	return price, nil
}
