package mock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/binh123-ol/english-learning/internal/transcript"
)

// testCallback implements recognizer.Callback for testing.
type testCallback struct {
	mu     sync.Mutex
	events []transcript.RecognitionEvent
	ends   int
	errors []error
}

func (c *testCallback) OnEvent(event transcript.RecognitionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *testCallback) OnEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ends++
}

func (c *testCallback) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, err)
}

func (c *testCallback) getEvents() []transcript.RecognitionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]transcript.RecognitionEvent{}, c.events...)
}

func (c *testCallback) getEnds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ends
}

func (c *testCallback) getErrors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error{}, c.errors...)
}

func waitDone(t *testing.T, a *Adapter) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for script playback")
	}
}

func TestAdapter_PlaysDefaultScript(t *testing.T) {
	a := New()
	cb := &testCallback{}

	if err := a.Start(context.Background(), cb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitDone(t, a)

	events := cb.getEvents()
	if len(events) == 0 {
		t.Fatal("expected scripted events")
	}
	last := events[len(events)-1]
	if len(last.Results) == 0 || !last.Results[len(last.Results)-1].IsFinal {
		t.Errorf("expected the script to end on a final result, got %+v", last)
	}
	if cb.getEnds() != 1 {
		t.Errorf("expected 1 stream end, got %d", cb.getEnds())
	}
}

func TestAdapter_StartErr(t *testing.T) {
	wantErr := errors.New("no device")
	a := NewScripted(Script{StartErr: wantErr})

	if err := a.Start(context.Background(), &testCallback{}); !errors.Is(err, wantErr) {
		t.Errorf("err = %v", err)
	}
}

func TestAdapter_ScriptedError(t *testing.T) {
	wantErr := errors.New("stream lost")
	a := NewScripted(Script{Err: wantErr})
	cb := &testCallback{}

	_ = a.Start(context.Background(), cb)
	waitDone(t, a)

	errs := cb.getErrors()
	if len(errs) != 1 || !errors.Is(errs[0], wantErr) {
		t.Errorf("errors = %v", errs)
	}
	if cb.getEnds() != 0 {
		t.Error("a failed stream must not also report a clean end")
	}
}

func TestAdapter_HoldSuppressesEnd(t *testing.T) {
	a := NewScripted(Script{Hold: true})
	cb := &testCallback{}

	_ = a.Start(context.Background(), cb)
	waitDone(t, a)

	if cb.getEnds() != 0 {
		t.Errorf("held script must not end the stream, got %d ends", cb.getEnds())
	}

	a.EmitEnd()
	if cb.getEnds() != 1 {
		t.Errorf("expected manual end, got %d", cb.getEnds())
	}
}

func TestAdapter_StopHaltsDelivery(t *testing.T) {
	a := NewScripted(Script{Hold: true})
	cb := &testCallback{}

	_ = a.Start(context.Background(), cb)
	if err := a.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.Emit(transcript.RecognitionEvent{Results: []transcript.ResultSlot{{Text: "late"}}})
	if got := len(cb.getEvents()); got != 0 {
		t.Errorf("expected no events after stop, got %d", got)
	}
}

func TestAdapter_RestartAfterStop(t *testing.T) {
	a := NewScripted(Script{Hold: true})
	cb := &testCallback{}

	_ = a.Start(context.Background(), cb)
	_ = a.Stop()

	cb2 := &testCallback{}
	if err := a.Start(context.Background(), cb2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Emit(transcript.RecognitionEvent{Results: []transcript.ResultSlot{{Text: "fresh"}}})

	if got := len(cb2.getEvents()); got != 1 {
		t.Errorf("expected 1 event on the restarted session, got %d", got)
	}
	if got := len(cb.getEvents()); got != 0 {
		t.Errorf("old callback must stay silent, got %d events", got)
	}
}

func TestAdapter_CloseIsTerminal(t *testing.T) {
	a := NewScripted(Script{Hold: true})
	cb := &testCallback{}

	_ = a.Start(context.Background(), cb)
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}

	a.Emit(transcript.RecognitionEvent{Results: []transcript.ResultSlot{{Text: "late"}}})
	if got := len(cb.getEvents()); got != 0 {
		t.Errorf("expected no events after close, got %d", got)
	}
}

func TestDefaultScript(t *testing.T) {
	s := DefaultScript()
	if len(s.Events) == 0 {
		t.Fatal("default script has no events")
	}
	last := s.Events[len(s.Events)-1]
	final := last.Results[len(last.Results)-1]
	if !final.IsFinal || final.Text == "" {
		t.Errorf("default script must finish with a non-empty final, got %+v", final)
	}
	if final.Confidence <= 0 || final.Confidence > 1 {
		t.Errorf("invalid confidence %f", final.Confidence)
	}
}
