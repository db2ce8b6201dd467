package constant

import "time"

const (
	ChatMessageRoleUser = "user"
	ChatMessageRoleAI   = "ai"

	// Answer substituted when the retrieval backend fails. The turn still
	// completes as answered; the failure is visible only through this text.
	ApologyAnswer = "Sorry, I couldn't process your request. Please try again."

	// Questions per calendar day for signed-out clients.
	DailyQuestionLimit = 5

	// Retrieval request document cap.
	RetrievalLimit = 5

	// Reveal pacing. Presentation parameters, not correctness-critical.
	RevealChunkSize = 5
	RevealTick      = 15 * time.Millisecond
)

const (
	TopicConversationCreated = "CONVERSATION_CREATED"
	TopicPaymentCompleted    = "PAYMENT_COMPLETED"
)
