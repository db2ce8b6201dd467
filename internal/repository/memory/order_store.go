package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// OrderStore keeps pending checkout orders for a day, which comfortably
// outlives the payment page's validity window.
type OrderStore struct {
	cache *cache.Cache
}

func NewOrderStore() *OrderStore {
	return &OrderStore{cache: cache.New(24*time.Hour, time.Hour)}
}

func (s *OrderStore) Put(orderId uuid.UUID, identity string) {
	s.cache.Set(orderId.String(), identity, cache.DefaultExpiration)
}

func (s *OrderStore) Get(orderId uuid.UUID) (string, bool) {
	if x, found := s.cache.Get(orderId.String()); found {
		return x.(string), true
	}
	return "", false
}

func (s *OrderStore) Delete(orderId uuid.UUID) {
	s.cache.Delete(orderId.String())
}
