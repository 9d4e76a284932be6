package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/binh123-ol/english-learning/internal/observability/logging"
	"github.com/binh123-ol/english-learning/internal/observability/metrics"
	"github.com/binh123-ol/english-learning/internal/transcript"
)

// FallbackMessage is stored when the AI feedback service cannot be reached.
// Never the empty string, so the view can tell "failed" from "not requested".
const FallbackMessage = "Không thể kết nối với AI để lấy nhận xét. Vui lòng thử lại."

// Status is the tri-state the view needs to render the feedback panel.
type Status int

const (
	// StatusNotRequested - no feedback asked for in this review session.
	StatusNotRequested Status = iota
	// StatusLoading - a request is in flight.
	StatusLoading
	// StatusAvailable - advisory text (or the fallback message) is ready.
	StatusAvailable
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusNotRequested:
		return "NOT_REQUESTED"
	case StatusLoading:
		return "LOADING"
	case StatusAvailable:
		return "AVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// Orchestrator runs at most one AI feedback request at a time. A new review
// session invalidates any stale pending request: the request is not cancelled,
// but its result is discarded when it lands.
type Orchestrator struct {
	analyzer Analyzer
	log      zerolog.Logger

	mu       sync.Mutex
	status   Status
	text     string
	inFlight bool
	gen      int
	done     chan struct{}
}

// NewOrchestrator creates an orchestrator over the given analyzer.
func NewOrchestrator(analyzer Analyzer) *Orchestrator {
	return &Orchestrator{
		analyzer: analyzer,
		log:      logging.WithComponent("feedback"),
	}
}

// State returns the current status and, when available, the advisory text.
func (o *Orchestrator) State() (Status, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status, o.text
}

// Request starts an asynchronous feedback round trip. No-op when the
// transcript is empty or a request is already in flight; returns whether a
// request was started.
func (o *Orchestrator) Request(ctx context.Context, text string, details []transcript.WordDetail) bool {
	if text == "" {
		return false
	}

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		o.log.Debug().Msg("Feedback request suppressed, one already in flight")
		metrics.DefaultMetrics.RecordFeedbackSuppressed()
		return false
	}
	o.inFlight = true
	o.status = StatusLoading
	o.text = ""
	o.gen++
	gen := o.gen
	o.done = make(chan struct{})
	done := o.done
	o.mu.Unlock()

	go o.run(ctx, gen, text, details, done)
	return true
}

func (o *Orchestrator) run(ctx context.Context, gen int, text string, details []transcript.WordDetail, done chan struct{}) {
	defer close(done)

	start := time.Now()
	advice, err := o.analyzer.Analyze(ctx, text, details)
	metrics.DefaultMetrics.RecordFeedbackRequest(err, time.Since(start).Seconds())

	o.mu.Lock()
	defer o.mu.Unlock()

	// The review session moved on: drop the result silently.
	if o.gen != gen {
		o.log.Debug().Msg("Discarding stale feedback result")
		return
	}

	o.inFlight = false
	o.status = StatusAvailable
	if err != nil {
		o.log.Error().Err(err).Msg("AI feedback request failed")
		o.text = FallbackMessage
		return
	}
	o.text = advice
}

// Done returns a channel closed when the current request completes. Nil when
// nothing was ever requested.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// Invalidate resets the orchestrator for a new review session. Any pending
// request keeps running but its result will be discarded.
func (o *Orchestrator) Invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gen++
	o.inFlight = false
	o.status = StatusNotRequested
	o.text = ""
}
