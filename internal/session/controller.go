// Package session coordinates the practice-session collaborators: the
// recording machine, the conversation timeline, the backend client, the
// feedback orchestrator, the synthesizer and the event publisher.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/binh123-ol/english-learning/internal/backend"
	"github.com/binh123-ol/english-learning/internal/events"
	"github.com/binh123-ol/english-learning/internal/feedback"
	"github.com/binh123-ol/english-learning/internal/observability/logging"
	"github.com/binh123-ol/english-learning/internal/recorder"
	"github.com/binh123-ol/english-learning/internal/synth"
	"github.com/binh123-ol/english-learning/internal/timeline"
	"github.com/binh123-ol/english-learning/internal/transcript"
)

var (
	// ErrSessionEnded is returned by mutating operations after End.
	ErrSessionEnded = errors.New("practice session already ended")
	// ErrNothingToSend is returned when a send is attempted with no
	// transcript under review.
	ErrNothingToSend = errors.New("no transcript under review to send")
	// ErrUnknownTurn is returned when a turn ID does not appear in the
	// timeline.
	ErrUnknownTurn = errors.New("turn not found in timeline")
)

// wordPlaybackRate slows down single-word playback for clarity.
const wordPlaybackRate = 0.8

// Controller drives one practice conversation end to end. All mutating
// operations are serialized; view accessors delegate to the thread-safe
// collaborators directly.
type Controller struct {
	conversationID string
	language       string

	machine   *recorder.Machine
	timeline  *timeline.Timeline
	backend   *backend.Client
	feedback  *feedback.Orchestrator
	synth     synth.Synthesizer
	publisher *events.Publisher
	log       zerolog.Logger

	mu    sync.Mutex
	ended bool
}

// Deps collects the controller's collaborators.
type Deps struct {
	ConversationID string
	Language       string
	Machine        *recorder.Machine
	Timeline       *timeline.Timeline
	Backend        *backend.Client
	Feedback       *feedback.Orchestrator
	Synth          synth.Synthesizer
	Publisher      *events.Publisher
}

// New wires a controller over the given collaborators.
func New(d Deps) *Controller {
	s := d.Synth
	if s == nil {
		s = synth.Noop{}
	}
	return &Controller{
		conversationID: d.ConversationID,
		language:       d.Language,
		machine:        d.Machine,
		timeline:       d.Timeline,
		backend:        d.Backend,
		feedback:       d.Feedback,
		synth:          s,
		publisher:      d.Publisher,
		log:            logging.WithConversation(d.ConversationID),
	}
}

// Refresh pulls the authoritative turn list from the backend and replaces
// the local view.
func (c *Controller) Refresh(ctx context.Context) error {
	turns, err := c.backend.FetchTurns(ctx, c.conversationID)
	if err != nil {
		return fmt.Errorf("refresh timeline: %w", err)
	}
	c.timeline.Replace(turns)
	return nil
}

// StartRecording begins a capture session.
func (c *Controller) StartRecording(ctx context.Context) error {
	if err := c.guardActive(); err != nil {
		return err
	}
	return c.machine.Start(ctx)
}

// StopRecording ends the capture session; the machine settles into
// reviewing or idle depending on the transcript.
func (c *Controller) StopRecording() error {
	return c.machine.Stop()
}

// Retake discards the transcript under review along with any pending
// feedback and restarts capture.
func (c *Controller) Retake(ctx context.Context) error {
	if err := c.guardActive(); err != nil {
		return err
	}
	c.feedback.Invalidate()
	return c.machine.Retake(ctx)
}

// DiscardReview drops the transcript under review without sending it.
func (c *Controller) DiscardReview() error {
	c.feedback.Invalidate()
	return c.machine.Finish()
}

// AcknowledgeError dismisses a capture failure.
func (c *Controller) AcknowledgeError() error {
	return c.machine.Acknowledge()
}

// SendRecorded submits the reviewed transcript as a user turn. The draft is
// cleared before the network call, so a failed send never leaves a stale
// review behind; the error is still reported.
func (c *Controller) SendRecorded(ctx context.Context) error {
	if err := c.guardActive(); err != nil {
		return err
	}
	if c.machine.Phase() != recorder.PhaseReviewing {
		return ErrNothingToSend
	}

	text, details := c.machine.Snapshot()
	c.feedback.Invalidate()
	if err := c.machine.Finish(); err != nil {
		return err
	}
	return c.sendTurn(ctx, text, details)
}

// SendText submits a typed user turn, bypassing the recorder.
func (c *Controller) SendText(ctx context.Context, text string) error {
	if err := c.guardActive(); err != nil {
		return err
	}
	if text == "" {
		return ErrNothingToSend
	}
	return c.sendTurn(ctx, text, nil)
}

func (c *Controller) sendTurn(ctx context.Context, text string, details []transcript.WordDetail) error {
	req := backend.SendTurnRequest{Message: text, PronunciationDetails: details}
	if err := c.backend.SendTurn(ctx, c.conversationID, req); err != nil {
		c.log.Error().Err(err).Msg("Turn send failed, draft discarded")
		return err
	}

	if c.publisher != nil {
		ev := events.TurnSentEvent{
			ConversationID: c.conversationID,
			Text:           text,
			WordCount:      len(details),
			Details:        details,
		}
		if err := c.publisher.PublishTurnSent(ctx, ev); err != nil {
			c.log.Warn().Err(err).Msg("Turn event publish failed")
		}
	}

	if err := c.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Timeline refresh after send failed")
	}
	return nil
}

// RequestFeedback asks the AI service for advice on the transcript under
// review. Returns whether a request was started.
func (c *Controller) RequestFeedback(ctx context.Context) bool {
	if c.machine.Phase() != recorder.PhaseReviewing {
		return false
	}
	text, details := c.machine.Snapshot()
	return c.feedback.Request(ctx, text, details)
}

// Feedback reports the feedback panel state.
func (c *Controller) Feedback() (feedback.Status, string) {
	return c.feedback.State()
}

// SpeakWord plays back a single word at a reduced rate.
func (c *Controller) SpeakWord(word string) {
	if word == "" {
		return
	}
	c.synth.Speak(synth.Command{Text: word, Lang: c.language, Rate: wordPlaybackRate})
}

// SpeakTurn plays back the content of a timeline turn.
func (c *Controller) SpeakTurn(id string) error {
	entry, ok := c.timeline.Get(id)
	if !ok {
		return ErrUnknownTurn
	}
	logger := logging.WithTurn(c.conversationID, id)
	logger.Debug().Msg("Turn playback")
	c.synth.Speak(synth.Command{Text: entry.Content, Lang: c.language})
	return nil
}

// ToggleTranslation flips the local translation flag of a turn.
func (c *Controller) ToggleTranslation(id string) error {
	if !c.timeline.ToggleTranslation(id) {
		return ErrUnknownTurn
	}
	return nil
}

// End finishes the practice session: the backend is told, the final turn
// list is pulled, and the summary is computed locally from it.
func (c *Controller) End(ctx context.Context) (timeline.Summary, error) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return timeline.Summary{}, ErrSessionEnded
	}
	c.ended = true
	c.mu.Unlock()

	if err := c.backend.EndSession(ctx, c.conversationID); err != nil {
		c.mu.Lock()
		c.ended = false
		c.mu.Unlock()
		return timeline.Summary{}, err
	}

	if err := c.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Final timeline refresh failed, summarizing cached view")
	}
	summary := c.timeline.SummarizeEntries()

	if c.publisher != nil {
		ev := events.SessionEndedEvent{
			ConversationID: c.conversationID,
			TotalTurns:     summary.TotalTurns,
			AverageScore:   summary.AveragePronunciationScore,
		}
		if err := c.publisher.PublishSessionEnded(ctx, ev); err != nil {
			c.log.Warn().Err(err).Msg("Session event publish failed")
		}
	}

	c.log.Info().
		Int("totalTurns", summary.TotalTurns).
		Float64("averageScore", summary.AveragePronunciationScore).
		Msg("Practice session ended")
	return summary, nil
}

// Ended reports whether End has completed.
func (c *Controller) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// ConversationID returns the conversation this controller drives.
func (c *Controller) ConversationID() string {
	return c.conversationID
}

// Phase reports the recorder phase.
func (c *Controller) Phase() recorder.Phase {
	return c.machine.Phase()
}

// Failure reports the pending capture failure, if any.
func (c *Controller) Failure() *recorder.Failure {
	return c.machine.Failure()
}

// Live returns the in-progress display transcript.
func (c *Controller) Live() string {
	return c.machine.Live()
}

// Review returns the transcript and details currently under review.
func (c *Controller) Review() (string, []transcript.WordDetail) {
	return c.machine.Snapshot()
}

// Entries returns the current conversation view.
func (c *Controller) Entries() []timeline.Entry {
	return c.timeline.Entries()
}

func (c *Controller) guardActive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return ErrSessionEnded
	}
	return nil
}
