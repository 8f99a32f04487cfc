// Package followup tracks the one active document each user may hold a
// question-and-answer thread about.
package followup

import "time"

// State is the explicit lifecycle tag of a user's follow-up thread.
type State string

const (
	// StateIdle means the user holds no active document context.
	StateIdle State = "idle"
	// StateOpen means an analysis was shown and the user may choose to
	// continue with questions or close the thread.
	StateOpen State = "open"
	// StateAwaitingAnswer means the user chose to continue; their next
	// plain message is consumed as a question.
	StateAwaitingAnswer State = "awaiting_answer"
)

// Context holds everything needed to answer questions about one
// document. Exactly one lives per user; a new upload replaces it.
type Context struct {
	UserID    int64     `json:"user_id"`
	FileName  string    `json:"file_name"`
	Text      string    `json:"text"`
	Analysis  string    `json:"analysis"`
	State     State     `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}
