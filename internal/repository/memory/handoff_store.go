package memory

import (
	"sync"
	"time"

	"lexchat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// HandoffStore is the transient slot carrying a first question across the
// navigation boundary. Slots expire after ten minutes if never consumed
// (abandoned navigation). Consume is atomic under the store mutex so
// concurrent opens of the destination page yield the handoff to exactly one
// caller.
type HandoffStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewHandoffStore() *HandoffStore {
	return &HandoffStore{
		cache: cache.New(10*time.Minute, 5*time.Minute),
	}
}

func (s *HandoffStore) Put(conversationId uuid.UUID, handoff *entity.PendingHandoff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(conversationId.String(), handoff, cache.DefaultExpiration)
}

func (s *HandoffStore) Consume(conversationId uuid.UUID) (*entity.PendingHandoff, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := conversationId.String()
	x, found := s.cache.Get(key)
	if !found {
		return nil, false
	}
	s.cache.Delete(key)
	return x.(*entity.PendingHandoff), true
}

func (s *HandoffStore) Peek(conversationId uuid.UUID) (*entity.PendingHandoff, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x, found := s.cache.Get(conversationId.String()); found {
		return x.(*entity.PendingHandoff), true
	}
	return nil, false
}

func (s *HandoffStore) Discard(conversationId uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(conversationId.String())
}
