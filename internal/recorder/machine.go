package recorder

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/binh123-ol/english-learning/internal/observability/logging"
	"github.com/binh123-ol/english-learning/internal/observability/metrics"
	"github.com/binh123-ol/english-learning/internal/recognizer"
	"github.com/binh123-ol/english-learning/internal/transcript"
)

// Errors for invalid lifecycle transitions.
var (
	ErrNotListening = errors.New("no capture in progress")
	ErrNotReviewing = errors.New("no transcript under review")
	ErrNotInError   = errors.New("no capture error to acknowledge")
	ErrBusy         = errors.New("cannot start capture in the current phase")
)

// User-facing capture failure messages, one per error class.
const (
	msgNoSpeech         = "No speech was detected. Please try again."
	msgPermissionDenied = "Microphone access is denied. Please enable it in your browser settings."
	msgOther            = "An error occurred with speech recognition. Please try again."
)

// Failure describes a capture error awaiting acknowledgement.
type Failure struct {
	Kind    recognizer.ErrorKind
	Message string
}

// Machine is the recording lifecycle state machine.
//
// Phase transitions:
//
//	IDLE → LISTENING            Start (clears the assembler first)
//	LISTENING → REVIEWING       Stop or provider stream end, transcript non-empty
//	LISTENING → IDLE            Stop or provider stream end, nothing finalized
//	LISTENING → ERROR           capture failure
//	REVIEWING → LISTENING       Retake (clears the assembler)
//	REVIEWING → IDLE            Finish (after send or discard)
//	ERROR → IDLE                Acknowledge
//
// At most one capture session is live at a time; Start while already
// listening is a no-op. Thread-safe for concurrent access.
type Machine struct {
	adapter   recognizer.Adapter
	assembler *transcript.Assembler
	log       zerolog.Logger

	mu      sync.Mutex
	phase   Phase
	failure *Failure
	gen     int
}

// New creates a machine in the idle phase.
func New(adapter recognizer.Adapter) *Machine {
	return &Machine{
		adapter:   adapter,
		assembler: transcript.NewAssembler(),
		log:       logging.WithComponent("recorder"),
		phase:     PhaseIdle,
	}
}

// Phase returns the current lifecycle phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Failure returns the pending capture failure, or nil outside the error phase.
func (m *Machine) Failure() *Failure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// Live returns the display transcript: finalized text plus the interim guess.
func (m *Machine) Live() string {
	return m.assembler.Live()
}

// Snapshot returns the finalized transcript and its word details.
func (m *Machine) Snapshot() (string, []transcript.WordDetail) {
	return m.assembler.FinalText(), m.assembler.Details()
}

// Start transitions IDLE → LISTENING and begins a capture session. The
// assembler is cleared before the recognizer starts. A Start while already
// listening is a no-op; a recognizer failure lands in the error phase.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	switch m.phase {
	case PhaseListening:
		m.mu.Unlock()
		return nil
	case PhaseIdle:
	default:
		phase := m.phase
		m.mu.Unlock()
		m.log.Warn().Stringer("phase", phase).Msg("Start refused outside idle phase")
		return ErrBusy
	}
	gen := m.beginSession()
	m.mu.Unlock()

	return m.startSession(ctx, gen)
}

// Retake transitions REVIEWING → LISTENING, discarding the transcript under
// review and restarting capture.
func (m *Machine) Retake(ctx context.Context) error {
	m.mu.Lock()
	if m.phase != PhaseReviewing {
		m.mu.Unlock()
		return ErrNotReviewing
	}
	gen := m.beginSession()
	m.mu.Unlock()

	return m.startSession(ctx, gen)
}

// beginSession opens the next capture generation and enters the listening
// phase. Caller holds the lock. The phase flips before the recognizer starts:
// adapters may deliver callbacks synchronously from Start, and those must not
// be dropped.
func (m *Machine) beginSession() int {
	m.gen++
	m.phase = PhaseListening
	m.failure = nil
	return m.gen
}

func (m *Machine) startSession(ctx context.Context, gen int) error {
	m.assembler.Reset()

	if err := m.adapter.Start(ctx, &sessionCallback{machine: m, gen: gen}); err != nil {
		kind := recognizer.KindOf(err)
		m.fail(gen, kind, err)
		return err
	}

	m.log.Info().Int("session", gen).Msg("Capture started")
	metrics.DefaultMetrics.RecordRecordingStarted()
	return nil
}

// Stop ends the capture session. With a non-empty transcript the machine
// enters the reviewing phase; otherwise it returns to idle.
func (m *Machine) Stop() error {
	m.mu.Lock()
	if m.phase != PhaseListening {
		m.mu.Unlock()
		return ErrNotListening
	}
	gen := m.gen
	m.mu.Unlock()

	if err := m.adapter.Stop(); err != nil {
		m.log.Warn().Err(err).Msg("Recognizer did not stop cleanly")
	}
	m.settle(gen)
	return nil
}

// Finish transitions REVIEWING → IDLE after the transcript was sent or
// discarded, clearing all transient state.
func (m *Machine) Finish() error {
	m.mu.Lock()
	if m.phase != PhaseReviewing {
		m.mu.Unlock()
		return ErrNotReviewing
	}
	m.phase = PhaseIdle
	m.mu.Unlock()

	m.assembler.Reset()
	m.log.Info().Msg("Review finished")
	return nil
}

// Acknowledge dismisses a capture error, transitioning ERROR → IDLE.
func (m *Machine) Acknowledge() error {
	m.mu.Lock()
	if m.phase != PhaseError {
		m.mu.Unlock()
		return ErrNotInError
	}
	m.phase = PhaseIdle
	m.failure = nil
	m.mu.Unlock()

	m.assembler.Reset()
	return nil
}

// settle decides where a finished capture session lands: reviewing when
// something was finalized, idle otherwise.
func (m *Machine) settle(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseListening || m.gen != gen {
		return
	}

	if m.assembler.Empty() {
		m.phase = PhaseIdle
		m.log.Info().Int("session", gen).Msg("Capture ended with no transcript")
		metrics.DefaultMetrics.RecordRecordingEmpty()
		return
	}

	m.phase = PhaseReviewing
	m.log.Info().Int("session", gen).Msg("Capture ended, transcript under review")
	metrics.DefaultMetrics.RecordRecordingCompleted()
	for _, d := range m.assembler.Details() {
		metrics.DefaultMetrics.RecordWordClassified(d.Tier.String())
	}
}

// fail records a capture failure and enters the error phase.
func (m *Machine) fail(gen int, kind recognizer.ErrorKind, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}

	var msg string
	switch kind {
	case recognizer.KindNoSpeech:
		msg = msgNoSpeech
	case recognizer.KindPermissionDenied:
		msg = msgPermissionDenied
	default:
		msg = msgOther
	}

	m.phase = PhaseError
	m.failure = &Failure{Kind: kind, Message: msg}
	m.log.Error().Err(err).Str("kind", string(kind)).Int("session", gen).Msg("Capture failed")
	metrics.DefaultMetrics.RecordCaptureError(string(kind))
}

// sessionCallback delivers recognizer events for one capture session. The
// generation guard keeps a late event from a stopped session out of the next
// session's transcript.
type sessionCallback struct {
	machine *Machine
	gen     int
}

func (c *sessionCallback) OnEvent(event transcript.RecognitionEvent) {
	m := c.machine
	m.mu.Lock()
	live := m.phase == PhaseListening && m.gen == c.gen
	m.mu.Unlock()
	if !live {
		return
	}
	m.assembler.Ingest(event)
	metrics.DefaultMetrics.RecordRecognitionEvent()
}

func (c *sessionCallback) OnEnd() {
	c.machine.settle(c.gen)
}

func (c *sessionCallback) OnError(err error) {
	m := c.machine
	m.mu.Lock()
	live := m.phase == PhaseListening && m.gen == c.gen
	m.mu.Unlock()
	if !live {
		return
	}
	m.fail(c.gen, recognizer.KindOf(err), err)
}
