package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PAYMENT_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewConversationCreated builds the event emitted when a new conversation
// is opened, before its first question has been answered.
func NewConversationCreated(conversationId, userKey string) BaseEvent {
	return BaseEvent{
		Type: "CONVERSATION_CREATED",
		Data: map[string]interface{}{
			"conversation_id": conversationId,
			"user_key":        userKey,
		},
		OccurredAt: time.Now(),
	}
}

// NewPaymentCompleted builds the event emitted once a checkout settles and
// the account has been upgraded.
func NewPaymentCompleted(orderId, userId string) BaseEvent {
	return BaseEvent{
		Type: "PAYMENT_COMPLETED",
		Data: map[string]interface{}{
			"order_id": orderId,
			"user_id":  userId,
		},
		OccurredAt: time.Now(),
	}
}
