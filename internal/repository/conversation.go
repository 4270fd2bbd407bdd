package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dinehq/maitred/internal/domain"
	logx "github.com/dinehq/maitred/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisConversationRepository keeps the rolling conversation window and
// the last structured result per {user, tenant} in redis. State survives
// between requests but is not required to survive a redis flush.
type RedisConversationRepository struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	window int
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration, window int) *RedisConversationRepository {
	if window <= 0 {
		window = 10
	}
	return &RedisConversationRepository{rdb: rdb, ttl: ttl, window: window}
}

func (r *RedisConversationRepository) turnsKey(tenantID, userID string) string {
	return fmt.Sprintf("conversation:%s:%s:turns", tenantID, userID)
}

func (r *RedisConversationRepository) resultKey(tenantID, userID string) string {
	return fmt.Sprintf("conversation:%s:%s:last-result", tenantID, userID)
}

// AppendTurn appends a turn and trims the window in one pipeline, then
// refreshes the TTL.
func (r *RedisConversationRepository) AppendTurn(ctx context.Context, tenantID, userID string, turn domain.ConversationTurn) error {
	b, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	key := r.turnsKey(tenantID, userID)

	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.LTrim(ctx, key, int64(-r.window), -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to append conversation turn")
		return err
	}
	return nil
}

// Recent returns up to n most recent turns, oldest first.
func (r *RedisConversationRepository) Recent(ctx context.Context, tenantID, userID string, n int) ([]domain.ConversationTurn, error) {
	if n <= 0 || n > r.window {
		n = r.window
	}
	key := r.turnsKey(tenantID, userID)

	rows, err := r.rdb.LRange(ctx, key, int64(-n), -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation turns")
		return nil, err
	}

	turns := make([]domain.ConversationTurn, 0, len(rows))
	for i, s := range rows {
		var t domain.ConversationTurn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			return nil, fmt.Errorf("unmarshal turn at index %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *RedisConversationRepository) SetLastResult(ctx context.Context, tenantID, userID string, result domain.LastResult) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal last result: %w", err)
	}
	return r.rdb.Set(ctx, r.resultKey(tenantID, userID), b, r.ttl).Err()
}

func (r *RedisConversationRepository) GetLastResult(ctx context.Context, tenantID, userID string) (*domain.LastResult, error) {
	raw, err := r.rdb.Get(ctx, r.resultKey(tenantID, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var result domain.LastResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("unmarshal last result: %w", err)
	}
	return &result, nil
}

func (r *RedisConversationRepository) Clear(ctx context.Context, tenantID, userID string) error {
	return r.rdb.Del(ctx, r.turnsKey(tenantID, userID), r.resultKey(tenantID, userID)).Err()
}
