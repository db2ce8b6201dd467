package entity

import (
	"time"

	"github.com/google/uuid"
)

type TurnStatus string

const (
	TurnStatusPending  TurnStatus = "pending"
	TurnStatusAnswered TurnStatus = "answered"
)

// Conversation is the orchestrator's working copy of one chat. The remote
// backend owns the durable history; this struct only lives in the active
// conversation store while a chat is open.
type Conversation struct {
	Id        uuid.UUID
	UserKey   string
	Turns     []*Turn
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turn is one question/answer exchange. A new question always appends a new
// Turn; prior turns are never mutated except for their status and reveal flag.
type Turn struct {
	Id               uuid.UUID
	Question         string
	Categories       []string
	Status           TurnStatus
	RevealInProgress bool
	Answer           *Answer
	CreatedAt        time.Time
}

// Answer is immutable once attached to a Turn. References hold the raw
// retrieval set; ordering and dedup happen at render time.
type Answer struct {
	Text       string
	References []Reference
}

// LatestTurn returns the most recent turn, or nil for an empty conversation.
func (c *Conversation) LatestTurn() *Turn {
	if len(c.Turns) == 0 {
		return nil
	}
	return c.Turns[len(c.Turns)-1]
}

// HasInFlight reports whether the latest turn is still waiting on retrieval.
func (c *Conversation) HasInFlight() bool {
	t := c.LatestTurn()
	return t != nil && t.Status == TurnStatusPending
}
