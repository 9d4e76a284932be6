// Package mock provides a scripted recognizer adapter for testing without a
// microphone or cloud credentials. It simulates realistic recognizer behavior
// with progressive interim guesses followed by a final result, and can be
// scripted to fail in each of the capture error classes.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/binh123-ol/english-learning/internal/recognizer"
	"github.com/binh123-ol/english-learning/internal/transcript"
)

// Script describes one simulated recording session.
type Script struct {
	StartErr error                         // returned from Start, session never begins
	Events   []transcript.RecognitionEvent // delivered in order after Start
	Err      error                         // delivered via OnError after the events
	Hold     bool                          // keep the stream open after the script instead of ending it
	Delay    time.Duration                 // pause between events
}

// DefaultScript simulates a short utterance with progressive interim guesses.
func DefaultScript() Script {
	return Script{
		Delay: 20 * time.Millisecond,
		Events: []transcript.RecognitionEvent{
			{Sequence: 0, Results: []transcript.ResultSlot{
				{IsFinal: false, Text: "I want"},
			}},
			{Sequence: 1, Results: []transcript.ResultSlot{
				{IsFinal: false, Text: "I want to practice"},
			}},
			{Sequence: 2, Results: []transcript.ResultSlot{
				{IsFinal: true, Text: "I want to practice speaking", Confidence: 0.93},
			}},
		},
	}
}

// Adapter implements recognizer.Adapter with scripted responses.
type Adapter struct {
	script Script

	mu      sync.Mutex
	cb      recognizer.Callback
	stopped bool
	closed  bool
	done    chan struct{}
}

// New creates a mock adapter playing the default script.
func New() *Adapter {
	return NewScripted(DefaultScript())
}

// NewScripted creates a mock adapter playing the given script.
func NewScripted(script Script) *Adapter {
	return &Adapter{script: script}
}

// Start begins playing the script on a background goroutine.
func (a *Adapter) Start(ctx context.Context, cb recognizer.Callback) error {
	if a.script.StartErr != nil {
		return a.script.StartErr
	}

	a.mu.Lock()
	a.cb = cb
	a.stopped = false
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go a.play(ctx, cb, done)
	return nil
}

func (a *Adapter) play(ctx context.Context, cb recognizer.Callback, done chan struct{}) {
	defer close(done)

	for _, event := range a.script.Events {
		if a.script.Delay > 0 {
			select {
			case <-time.After(a.script.Delay):
			case <-ctx.Done():
				return
			}
		}
		if a.halted() {
			return
		}
		cb.OnEvent(event)
	}

	if a.halted() {
		return
	}
	if a.script.Err != nil {
		cb.OnError(a.script.Err)
		return
	}
	if a.script.Hold {
		return
	}
	// Provider-initiated end, like a silence timeout.
	cb.OnEnd()
}

func (a *Adapter) halted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped || a.closed
}

// Done returns a channel closed once the current script has been fully
// delivered. Nil before Start.
func (a *Adapter) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Emit forwards an event directly to the session callback, bypassing the
// script. For test control.
func (a *Adapter) Emit(event transcript.RecognitionEvent) {
	a.mu.Lock()
	cb := a.cb
	halted := a.stopped || a.closed
	a.mu.Unlock()
	if cb != nil && !halted {
		cb.OnEvent(event)
	}
}

// EmitEnd signals a provider-initiated stream end, bypassing the script.
func (a *Adapter) EmitEnd() {
	a.mu.Lock()
	cb := a.cb
	halted := a.stopped || a.closed
	a.mu.Unlock()
	if cb != nil && !halted {
		cb.OnEnd()
	}
}

// EmitError signals a provider failure, bypassing the script.
func (a *Adapter) EmitError(err error) {
	a.mu.Lock()
	cb := a.cb
	halted := a.stopped || a.closed
	a.mu.Unlock()
	if cb != nil && !halted {
		cb.OnError(err)
	}
}

// Stop halts script delivery. Events already delivered stand.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
	return nil
}

// Close releases the adapter.
func (a *Adapter) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return nil
}
