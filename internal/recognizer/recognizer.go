// Package recognizer defines the interface for streaming speech recognizers.
package recognizer

import (
	"context"
	"errors"

	"github.com/binh123-ol/english-learning/internal/transcript"
)

// Callback receives recognition results from the provider.
type Callback interface {
	// OnEvent is called for each batch of result slots, in delivery order.
	OnEvent(event transcript.RecognitionEvent)

	// OnEnd is called when the provider ends the stream on its own,
	// e.g. after a silence timeout.
	OnEnd()

	// OnError is called when recognition fails. The stream is dead after
	// this call.
	OnError(err error)
}

// Adapter defines the interface for recognizer providers (Google, Deepgram,
// the scripted mock). An adapter captures its own audio; the core only
// consumes the event stream.
type Adapter interface {
	// Start begins a streaming recognition session.
	Start(ctx context.Context, cb Callback) error

	// Stop ends the session. Best-effort: events already delivered stand.
	Stop() error

	// Close releases provider resources.
	Close() error
}

// ErrorKind classifies capture failures for user-facing handling.
type ErrorKind string

const (
	KindNoSpeech         ErrorKind = "no-speech"
	KindPermissionDenied ErrorKind = "permission-denied"
	KindOther            ErrorKind = "other"
)

// CaptureError wraps a provider error with its failure classification.
type CaptureError struct {
	Kind ErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// NewCaptureError wraps err with the given kind.
func NewCaptureError(kind ErrorKind, err error) *CaptureError {
	return &CaptureError{Kind: kind, Err: err}
}

// KindOf extracts the failure classification from err, defaulting to
// KindOther for unclassified failures.
func KindOf(err error) ErrorKind {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindOther
}
