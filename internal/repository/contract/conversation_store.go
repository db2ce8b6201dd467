package contract

import (
	"lexchat-be/internal/entity"

	"github.com/google/uuid"
)

// ConversationStore holds the orchestrator's working copy of open
// conversations. Eviction is acceptable: the remote history is the source of
// truth and an evicted conversation is rebuilt from it on the next open.
type ConversationStore interface {
	Get(id uuid.UUID) (*entity.Conversation, bool)
	Save(conv *entity.Conversation)
	Delete(id uuid.UUID)
}

// HandoffStore is the single-slot pending-question handoff, keyed by the
// freshly assigned conversation id. Consume removes the slot atomically so
// the first question is processed exactly once even if the destination
// context opens the conversation more than once.
type HandoffStore interface {
	Put(conversationId uuid.UUID, handoff *entity.PendingHandoff)
	Consume(conversationId uuid.UUID) (*entity.PendingHandoff, bool)
	Peek(conversationId uuid.UUID) (*entity.PendingHandoff, bool)
	Discard(conversationId uuid.UUID)
}
