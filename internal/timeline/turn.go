// Package timeline holds the append-only conversation timeline: the ordered
// log of turns the conversation backend owns, plus the local view state the
// rendering layer needs (decoded feedback, translation toggles).
package timeline

import "time"

// SenderKind identifies who produced a turn.
type SenderKind string

const (
	SenderUser  SenderKind = "USER"
	SenderAgent SenderKind = "AI"
)

// Turn is one message in the conversation timeline, as stored by the
// conversation backend. Read-only to the client core.
type Turn struct {
	ID                 string     `json:"messageId"`
	Sender             SenderKind `json:"senderType"`
	Content            string     `json:"content"`
	SentAt             time.Time  `json:"sentAt"`
	PronunciationScore *float64   `json:"pronunciationScore,omitempty"`
	Feedback           string     `json:"feedback,omitempty"`
}

// Entry is a turn enriched with client-local view state. Feedback is decoded
// exactly once when the turn enters the timeline.
type Entry struct {
	Turn
	Decoded         DecodedFeedback
	ShowTranslation bool
}
