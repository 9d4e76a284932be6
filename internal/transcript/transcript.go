// Package transcript assembles the stream of recognition events into a stable
// transcript plus an ordered list of word/tier details.
package transcript

import (
	"github.com/binh123-ol/english-learning/internal/classify"
)

// ResultSlot is one result slot of a recognition event. A slot may be revised
// by later events until it is marked final, after which it is immutable.
type ResultSlot struct {
	IsFinal    bool    `json:"isFinal"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// RecognitionEvent is one batch of result slots emitted by the recognizer.
// Events arrive in increasing sequence order within a recording session.
type RecognitionEvent struct {
	Sequence int          `json:"sequence"`
	Results  []ResultSlot `json:"results"`
}

// WordDetail pairs one finalized word with its pronunciation tier.
// The wire field is named "status" to match the conversation backend.
type WordDetail struct {
	Word string        `json:"word"`
	Tier classify.Tier `json:"status"`
}
