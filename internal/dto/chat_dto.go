package dto

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTurnInFlight rejects a new question while the latest turn of the same
// conversation is still waiting on retrieval.
var ErrTurnInFlight = errors.New("a question is already being answered")

type StartConversationRequest struct {
	Question   string   `json:"question" validate:"required"`
	Categories []string `json:"categories,omitempty" validate:"max=4"`
}

// StartConversationResponse only carries the new id; the retrieval call is
// deferred until the destination page opens the conversation.
type StartConversationResponse struct {
	ConversationId uuid.UUID `json:"conversation_id"`
}

type AskRequest struct {
	Question   string   `json:"question" validate:"required"`
	Categories []string `json:"categories,omitempty" validate:"max=4"`
}

type ReferenceDTO struct {
	FileId   string  `json:"file_id"`
	CaseType string  `json:"case_type"`
	Score    float64 `json:"score"`
	Date     string  `json:"date,omitempty"`
	Url      string  `json:"url,omitempty"`
	Summary  string  `json:"summary,omitempty"`
	Text     string  `json:"text,omitempty"`
}

type AnswerDTO struct {
	Text       string         `json:"text"`
	References []ReferenceDTO `json:"references"`
}

type TurnDTO struct {
	Id               uuid.UUID  `json:"id"`
	Question         string     `json:"question"`
	Categories       []string   `json:"categories,omitempty"`
	Status           string     `json:"status"`
	RevealInProgress bool       `json:"reveal_in_progress"`
	Answer           *AnswerDTO `json:"answer,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type ConversationResponse struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	Turns          []TurnDTO `json:"turns"`
}

// RevealFrame is one websocket push of the paced answer reveal. Text always
// carries the full prefix revealed so far, so a dropped frame self-heals.
type RevealFrame struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	TurnId         uuid.UUID `json:"turn_id"`
	Text           string    `json:"text"`
	Done           bool      `json:"done"`
}
