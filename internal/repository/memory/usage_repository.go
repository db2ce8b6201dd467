package memory

import (
	"context"
	"time"

	"lexchat-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// UsageRepository is the in-memory counter store, used in tests and as the
// fallback when no Redis is configured.
type UsageRepository struct {
	cache *cache.Cache
}

func NewUsageRepository() *UsageRepository {
	// Counters only matter for the current day; 48h covers timezone slack.
	return &UsageRepository{cache: cache.New(48*time.Hour, time.Hour)}
}

func (r *UsageRepository) Get(_ context.Context, clientKey string) (*entity.DailyUsage, error) {
	if x, found := r.cache.Get(clientKey); found {
		u := x.(entity.DailyUsage)
		return &u, nil
	}
	return nil, nil
}

func (r *UsageRepository) Save(_ context.Context, clientKey string, usage *entity.DailyUsage) error {
	r.cache.Set(clientKey, *usage, cache.DefaultExpiration)
	return nil
}
