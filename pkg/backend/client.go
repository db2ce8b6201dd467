package backend

import (
	"context"
	"encoding/json"
)

// Client is the contract for the remote question-answering backend. The
// service layer depends on this interface; tests substitute fakes.
type Client interface {
	// Retrieve runs the retrieval/generation call for one question.
	Retrieve(ctx context.Context, req *RetrieveRequest) (*RetrieveResponse, error)

	// AddChatMessage appends one message to the remote chat history.
	// Fire-and-forget from the orchestrator's perspective.
	AddChatMessage(ctx context.Context, identity, conversationId, sender, message string) error

	// GetChatHistory returns the stored [text, role] pairs for a conversation.
	GetChatHistory(ctx context.Context, identity, conversationId string) ([][]string, error)

	// UserSessions lists all conversations for an identity.
	UserSessions(ctx context.Context, identity string) ([]SessionPayload, error)

	// FetchPremium reads the premium flag for an identity. Absence or a
	// malformed record reads as non-premium, not as an error.
	FetchPremium(ctx context.Context, identity string) (bool, error)

	// RegisterUser ensures the identity exists on the backend.
	RegisterUser(ctx context.Context, identity string) error

	// MakeUserPremium flips the premium flag after a completed payment.
	MakeUserPremium(ctx context.Context, identity string) error

	// AppendContextHistory records the document ids cited so far.
	AppendContextHistory(ctx context.Context, identity, conversationId string, ids []string) error
}

type RetrieveRequest struct {
	Question  string   `json:"question"`
	CaseTypes []string `json:"case_types"`
	Limit     int      `json:"limit"`
}

// RetrieveResponse keeps Metadata raw: the backend has shipped it both as a
// keyed object and as an array, and the mapper package owns that adaptation.
type RetrieveResponse struct {
	Response string          `json:"response"`
	Metadata json.RawMessage `json:"metadata"`
}

type SessionPayload struct {
	SessionId string           `json:"session_id"`
	Messages  []MessagePayload `json:"messages"`
}

type MessagePayload struct {
	Id        int             `json:"id"`
	Content   string          `json:"content"`
	Role      string          `json:"role"`
	Timestamp string          `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}
