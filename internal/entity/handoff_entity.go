package entity

import "time"

// PendingHandoff carries the first question of a new conversation across the
// client-side navigation boundary. The conversation id exists only once the
// question is submitted, so the retrieval call must run on the destination
// page, reading this single-slot record. Consumed exactly once.
type PendingHandoff struct {
	Question   string
	Categories []string
	Ready      bool
	CreatedAt  time.Time
}
