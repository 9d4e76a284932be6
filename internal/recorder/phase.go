// Package recorder provides the recording lifecycle state machine that
// governs capture sessions and owns the transcript assembler.
package recorder

import "fmt"

// Phase represents the lifecycle phase of the recorder.
type Phase int

const (
	// PhaseIdle - no capture in progress, ready to start.
	PhaseIdle Phase = iota
	// PhaseListening - recognizer stream is live, events are being ingested.
	PhaseListening
	// PhaseReviewing - capture finished with a non-empty transcript awaiting
	// user confirmation.
	PhaseReviewing
	// PhaseError - capture failed, waiting for the user to acknowledge.
	PhaseError
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseListening:
		return "LISTENING"
	case PhaseReviewing:
		return "REVIEWING"
	case PhaseError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(p))
	}
}
