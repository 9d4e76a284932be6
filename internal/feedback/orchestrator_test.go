package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/binh123-ol/english-learning/internal/transcript"
)

// stubAnalyzer blocks each call until released, counting invocations.
type stubAnalyzer struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	advice  string
	err     error
}

func newStubAnalyzer(advice string, err error) *stubAnalyzer {
	return &stubAnalyzer{release: make(chan struct{}), advice: advice, err: err}
}

func (s *stubAnalyzer) Analyze(ctx context.Context, text string, details []transcript.WordDetail) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	<-s.release
	return s.advice, s.err
}

func (s *stubAnalyzer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func waitDone(t *testing.T, o *Orchestrator) {
	t.Helper()
	select {
	case <-o.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feedback request")
	}
}

func TestOrchestrator_Success(t *testing.T) {
	stub := newStubAnalyzer("Nice work on the vowels.", nil)
	o := NewOrchestrator(stub)

	if status, _ := o.State(); status != StatusNotRequested {
		t.Fatalf("initial status = %v", status)
	}

	if !o.Request(context.Background(), "hello there", nil) {
		t.Fatal("expected request to start")
	}
	if status, _ := o.State(); status != StatusLoading {
		t.Errorf("status while in flight = %v", status)
	}

	close(stub.release)
	waitDone(t, o)

	status, text := o.State()
	if status != StatusAvailable {
		t.Errorf("status = %v", status)
	}
	if text != "Nice work on the vowels." {
		t.Errorf("text = %q", text)
	}
}

func TestOrchestrator_EmptyTranscriptNoOp(t *testing.T) {
	stub := newStubAnalyzer("x", nil)
	o := NewOrchestrator(stub)

	if o.Request(context.Background(), "", nil) {
		t.Error("empty transcript must not start a request")
	}
	if stub.callCount() != 0 {
		t.Errorf("analyzer called %d times", stub.callCount())
	}
}

func TestOrchestrator_SingleFlight(t *testing.T) {
	stub := newStubAnalyzer("advice", nil)
	o := NewOrchestrator(stub)

	if !o.Request(context.Background(), "hello", nil) {
		t.Fatal("first request must start")
	}
	if o.Request(context.Background(), "hello", nil) {
		t.Error("re-entrant request while in flight must be a no-op")
	}

	close(stub.release)
	waitDone(t, o)

	if stub.callCount() != 1 {
		t.Errorf("expected exactly one analyzer call, got %d", stub.callCount())
	}
}

func TestOrchestrator_FailureStoresFallback(t *testing.T) {
	stub := newStubAnalyzer("", errors.New("connection refused"))
	o := NewOrchestrator(stub)

	o.Request(context.Background(), "hello", nil)
	close(stub.release)
	waitDone(t, o)

	status, text := o.State()
	if status != StatusAvailable {
		t.Errorf("status = %v", status)
	}
	if text != FallbackMessage {
		t.Errorf("expected fallback message, got %q", text)
	}
	if text == "" {
		t.Error("fallback must never be the empty string")
	}
}

func TestOrchestrator_StaleResultDiscarded(t *testing.T) {
	stub := newStubAnalyzer("late advice", nil)
	o := NewOrchestrator(stub)

	o.Request(context.Background(), "hello", nil)
	done := o.Done()

	// A new recording starts before the result lands.
	o.Invalidate()

	close(stub.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stale request")
	}

	status, text := o.State()
	if status != StatusNotRequested || text != "" {
		t.Errorf("stale result must be discarded, got status=%v text=%q", status, text)
	}
}
