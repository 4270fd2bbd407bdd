package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	"github.com/redis/go-redis/v9"
)

// usageKeyTTL keeps daily counters around long enough for reporting;
// rollover happens by date key, not by expiry.
const usageKeyTTL = 72 * time.Hour

// RedisUsageRepository accumulates per-tenant daily token and request
// counters and holds the response cache. All writes are increments so
// concurrent requests accumulate instead of overwriting.
type RedisUsageRepository struct {
	rdb      redis.Cmdable
	cacheTTL time.Duration
}

func NewRedisUsageRepository(rdb redis.Cmdable, cacheTTL time.Duration) *RedisUsageRepository {
	return &RedisUsageRepository{rdb: rdb, cacheTTL: cacheTTL}
}

func usageKey(tenantID string, family domain.ModelFamily, date string) string {
	return fmt.Sprintf("usage:%s:%s:%s", tenantID, family, date)
}

func requestsKey(tenantID string, family domain.ModelFamily, date string) string {
	return fmt.Sprintf("usage:%s:%s:%s:requests", tenantID, family, date)
}

func cacheKey(tenantID, queryHash string) string {
	return fmt.Sprintf("cache:%s:%s", tenantID, queryHash)
}

// AddTokens increments the day's token counter and returns the new total.
func (r *RedisUsageRepository) AddTokens(ctx context.Context, tenantID string, family domain.ModelFamily, date string, tokens int64) (int64, error) {
	key := usageKey(tenantID, family, date)
	pipe := r.rdb.TxPipeline()
	incr := pipe.IncrBy(ctx, key, tokens)
	pipe.Expire(ctx, key, usageKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *RedisUsageRepository) AddRequest(ctx context.Context, tenantID string, family domain.ModelFamily, date string) error {
	key := requestsKey(tenantID, family, date)
	pipe := r.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, usageKeyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetUsage returns the day's usage record; zero counts when absent.
func (r *RedisUsageRepository) GetUsage(ctx context.Context, tenantID string, family domain.ModelFamily, date string) (*domain.UsageRecord, error) {
	record := &domain.UsageRecord{TenantID: tenantID, Family: family, Date: date}

	tokens, err := r.rdb.Get(ctx, usageKey(tenantID, family, date)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	record.TokenCount = tokens

	requests, err := r.rdb.Get(ctx, requestsKey(tenantID, family, date)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	record.RequestCount = requests

	return record, nil
}

// GetCached returns the cached entry for a query hash, or nil on a miss.
// Redis expiry enforces the freshness window.
func (r *RedisUsageRepository) GetCached(ctx context.Context, tenantID, queryHash string) (*domain.CacheEntry, error) {
	raw, err := r.rdb.Get(ctx, cacheKey(tenantID, queryHash)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return &entry, nil
}

func (r *RedisUsageRepository) SetCached(ctx context.Context, entry domain.CacheEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return r.rdb.Set(ctx, cacheKey(entry.TenantID, entry.QueryHash), b, r.cacheTTL).Err()
}
