package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pricing "main/internal/domain/entity/pricing"

	"github.com/redis/go-redis/v9"
)

// Cache keeps TTL'd read views of the latest observations in Redis:
// price:<symbol>:<source> holds the last per-source snapshot, and
// market:<symbol> is a hash of per-source snapshots for one-shot
// multi-source reads. Redis is never the system of record.
type Cache struct {
	client        *redis.Client
	snapshotTTL   time.Duration
	marketHashTTL time.Duration
}

func New(client *redis.Client, snapshotTTL, marketHashTTL time.Duration) *Cache {
	return &Cache{
		client:        client,
		snapshotTTL:   snapshotTTL,
		marketHashTTL: marketHashTTL,
	}
}

func (c *Cache) StoreSnapshots(ctx context.Context, observations []pricing.PriceObservation) error {
	if len(observations) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for i := range observations {
		obs := &observations[i]
		payload, err := json.Marshal(obs)
		if err != nil {
			return fmt.Errorf("marshal snapshot for %s/%s: %w", obs.Symbol, obs.SourceID, err)
		}
		pipe.Set(ctx, snapshotKey(obs.Symbol, obs.SourceID), payload, c.snapshotTTL)
		pipe.HSet(ctx, marketKey(obs.Symbol), obs.SourceID, payload)
		pipe.Expire(ctx, marketKey(obs.Symbol), c.marketHashTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("flush cache pipeline: %w", err)
	}
	return nil
}

func (c *Cache) GetMarketSnapshots(ctx context.Context, symbol string) (map[string]pricing.PriceObservation, error) {
	fields, err := c.client.HGetAll(ctx, marketKey(symbol)).Result()
	if err != nil {
		return nil, fmt.Errorf("read market hash for %s: %w", symbol, err)
	}
	snapshots := make(map[string]pricing.PriceObservation, len(fields))
	for sourceID, raw := range fields {
		var obs pricing.PriceObservation
		if err := json.Unmarshal([]byte(raw), &obs); err != nil {
			continue
		}
		snapshots[sourceID] = obs
	}
	return snapshots, nil
}

// IncrUnmapped counts resolution misses per (source, raw code). The TTL is
// armed only when the counter is created, so the count covers one window.
func (c *Cache) IncrUnmapped(ctx context.Context, sourceID, rawCode string, ttl time.Duration) (int64, error) {
	key := fmt.Sprintf("unmapped:%s:%s", sourceID, rawCode)
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr unmapped counter %s: %w", key, err)
	}
	if count == 1 && ttl > 0 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			return count, fmt.Errorf("arm ttl on %s: %w", key, err)
		}
	}
	return count, nil
}

func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func snapshotKey(symbol, sourceID string) string {
	return fmt.Sprintf("price:%s:%s", symbol, sourceID)
}

func marketKey(symbol string) string {
	return fmt.Sprintf("market:%s", symbol)
}
