package dto

import "github.com/google/uuid"

// ConversationCreatedMessage is the bus payload emitted when a conversation
// id has been assigned and its first question parked in the handoff slot.
type ConversationCreatedMessage struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	UserKey        string    `json:"user_key"`
}

// PaymentCompletedMessage is the bus payload emitted after a settled
// checkout has flipped the account to premium.
type PaymentCompletedMessage struct {
	OrderId uuid.UUID `json:"order_id"`
	UserId  string    `json:"user_id"`
}
