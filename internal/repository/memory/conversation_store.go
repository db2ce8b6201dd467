package memory

import (
	"time"

	"lexchat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ConversationStore keeps open conversations in memory. Idle conversations
// expire after an hour; the remote history remains the durable copy.
type ConversationStore struct {
	cache *cache.Cache
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		cache: cache.New(1*time.Hour, 10*time.Minute),
	}
}

func (s *ConversationStore) Get(id uuid.UUID) (*entity.Conversation, bool) {
	if x, found := s.cache.Get(id.String()); found {
		return x.(*entity.Conversation), true
	}
	return nil, false
}

func (s *ConversationStore) Save(conv *entity.Conversation) {
	s.cache.Set(conv.Id.String(), conv, cache.DefaultExpiration)
}

func (s *ConversationStore) Delete(id uuid.UUID) {
	s.cache.Delete(id.String())
}
