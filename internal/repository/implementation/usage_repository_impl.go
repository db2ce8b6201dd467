package implementation

import (
	"context"
	"encoding/json"
	"time"

	"lexchat-be/internal/entity"

	"github.com/redis/go-redis/v9"
)

const usageKeyPrefix = "usage:"

// RedisUsageRepository persists daily counters in Redis so the limit
// survives process restarts. Read or parse failures report no prior usage;
// the limiter treats that as count zero.
type RedisUsageRepository struct {
	rdb *redis.Client
}

func NewRedisUsageRepository(rdb *redis.Client) *RedisUsageRepository {
	return &RedisUsageRepository{rdb: rdb}
}

func (r *RedisUsageRepository) Get(ctx context.Context, clientKey string) (*entity.DailyUsage, error) {
	raw, err := r.rdb.Get(ctx, usageKeyPrefix+clientKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var usage entity.DailyUsage
	if err := json.Unmarshal([]byte(raw), &usage); err != nil {
		// Corrupted value: start over rather than fail the submission.
		return nil, nil
	}
	return &usage, nil
}

func (r *RedisUsageRepository) Save(ctx context.Context, clientKey string, usage *entity.DailyUsage) error {
	raw, err := json.Marshal(usage)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, usageKeyPrefix+clientKey, raw, 48*time.Hour).Err()
}
