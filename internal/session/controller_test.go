package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/binh123-ol/english-learning/internal/backend"
	"github.com/binh123-ol/english-learning/internal/feedback"
	"github.com/binh123-ol/english-learning/internal/recognizer/mock"
	"github.com/binh123-ol/english-learning/internal/recorder"
	"github.com/binh123-ol/english-learning/internal/synth"
	"github.com/binh123-ol/english-learning/internal/timeline"
	"github.com/binh123-ol/english-learning/internal/transcript"
)

// fakeBackend is an in-memory conversation backend over httptest.
type fakeBackend struct {
	mu       sync.Mutex
	turns    []timeline.Turn
	sends    []backend.SendTurnRequest
	ended    bool
	failSend bool
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/messages"):
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(f.turns)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/messages"):
			if f.failSend {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
			var req backend.SendTurnRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode send body: %v", err)
			}
			f.sends = append(f.sends, req)
			f.turns = append(f.turns, timeline.Turn{
				ID:      "u1",
				Sender:  timeline.SenderUser,
				Content: req.Message,
			})
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/end"):
			f.ended = true
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeBackend) sentMessages() []backend.SendTurnRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.SendTurnRequest, len(f.sends))
	copy(out, f.sends)
	return out
}

type stubAnalyzer struct {
	advice string
	err    error
}

func (s stubAnalyzer) Analyze(context.Context, string, []transcript.WordDetail) (string, error) {
	return s.advice, s.err
}

type harness struct {
	ctrl    *Controller
	adapter *mock.Adapter
	backend *fakeBackend
	synth   *synth.Recorder
}

func newHarness(t *testing.T, analyzer feedback.Analyzer) *harness {
	t.Helper()

	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler(t))
	t.Cleanup(srv.Close)

	if analyzer == nil {
		analyzer = stubAnalyzer{advice: "Good pacing overall."}
	}

	adapter := mock.NewScripted(mock.Script{Hold: true})
	rec := &synth.Recorder{}
	ctrl := New(Deps{
		ConversationID: "conv-1",
		Language:       "en-US",
		Machine:        recorder.New(adapter),
		Timeline:       timeline.New(),
		Backend:        backend.New(srv.URL, 5*time.Second),
		Feedback:       feedback.NewOrchestrator(analyzer),
		Synth:          rec,
	})
	return &harness{ctrl: ctrl, adapter: adapter, backend: fb, synth: rec}
}

// record drives the machine into the reviewing phase with the given final
// transcript.
func (h *harness) record(t *testing.T, text string, confidence float64) {
	t.Helper()
	if err := h.ctrl.StartRecording(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.adapter.Emit(transcript.RecognitionEvent{Sequence: 0, Results: []transcript.ResultSlot{
		{IsFinal: true, Text: text, Confidence: confidence},
	}})
	if err := h.ctrl.StopRecording(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestController_SendRecorded(t *testing.T) {
	h := newHarness(t, nil)
	h.record(t, "good morning teacher", 0.9)

	if h.ctrl.Phase() != recorder.PhaseReviewing {
		t.Fatalf("phase = %v", h.ctrl.Phase())
	}
	if err := h.ctrl.SendRecorded(context.Background()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if h.ctrl.Phase() != recorder.PhaseIdle {
		t.Errorf("phase after send = %v, want idle", h.ctrl.Phase())
	}

	sends := h.backend.sentMessages()
	if len(sends) != 1 {
		t.Fatalf("expected 1 send, got %d", len(sends))
	}
	if sends[0].Message != "good morning teacher" {
		t.Errorf("sent message = %q", sends[0].Message)
	}
	if len(sends[0].PronunciationDetails) != 3 {
		t.Errorf("expected 3 word details, got %d", len(sends[0].PronunciationDetails))
	}

	// The timeline was refreshed from the backend after the send.
	entries := h.ctrl.Entries()
	if len(entries) != 1 || entries[0].Content != "good morning teacher" {
		t.Errorf("entries after send = %+v", entries)
	}
}

func TestController_SendRecordedFailureClearsDraft(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.failSend = true
	h.record(t, "hello", 0.9)

	if err := h.ctrl.SendRecorded(context.Background()); err == nil {
		t.Fatal("expected send error")
	}
	if h.ctrl.Phase() != recorder.PhaseIdle {
		t.Errorf("phase = %v, draft must be cleared even on failure", h.ctrl.Phase())
	}
	if text, _ := h.ctrl.Review(); text != "" {
		t.Errorf("review text = %q, want empty", text)
	}
}

func TestController_SendRecordedRequiresReview(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.SendRecorded(context.Background()); !errors.Is(err, ErrNothingToSend) {
		t.Errorf("err = %v, want ErrNothingToSend", err)
	}
}

func TestController_SendText(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.ctrl.SendText(context.Background(), "typed message"); err != nil {
		t.Fatalf("send text: %v", err)
	}

	sends := h.backend.sentMessages()
	if len(sends) != 1 || sends[0].Message != "typed message" {
		t.Fatalf("sends = %+v", sends)
	}
	if len(sends[0].PronunciationDetails) != 0 {
		t.Errorf("typed turns carry no pronunciation details, got %d", len(sends[0].PronunciationDetails))
	}

	if err := h.ctrl.SendText(context.Background(), ""); !errors.Is(err, ErrNothingToSend) {
		t.Errorf("empty text err = %v", err)
	}
}

func TestController_RequestFeedback(t *testing.T) {
	h := newHarness(t, stubAnalyzer{advice: "Mind the th sound."})

	if h.ctrl.RequestFeedback(context.Background()) {
		t.Error("feedback must not start outside the reviewing phase")
	}

	h.record(t, "three things", 0.7)
	if !h.ctrl.RequestFeedback(context.Background()) {
		t.Fatal("expected feedback request to start")
	}

	select {
	case <-h.ctrl.feedback.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feedback")
	}

	status, text := h.ctrl.Feedback()
	if status != feedback.StatusAvailable || text != "Mind the th sound." {
		t.Errorf("feedback = %v %q", status, text)
	}
}

func TestController_RetakeInvalidatesFeedback(t *testing.T) {
	h := newHarness(t, stubAnalyzer{advice: "ok"})
	h.record(t, "first attempt", 0.8)

	h.ctrl.RequestFeedback(context.Background())
	<-h.ctrl.feedback.Done()

	if err := h.ctrl.Retake(context.Background()); err != nil {
		t.Fatalf("retake: %v", err)
	}
	if status, _ := h.ctrl.Feedback(); status != feedback.StatusNotRequested {
		t.Errorf("feedback status after retake = %v", status)
	}
	if h.ctrl.Phase() != recorder.PhaseListening {
		t.Errorf("phase after retake = %v", h.ctrl.Phase())
	}
}

func TestController_Speak(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.turns = []timeline.Turn{
		{ID: "a1", Sender: timeline.SenderAgent, Content: "How are you today?"},
	}
	if err := h.ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	h.ctrl.SpeakWord("morning")
	if err := h.ctrl.SpeakTurn("a1"); err != nil {
		t.Fatalf("speak turn: %v", err)
	}
	if err := h.ctrl.SpeakTurn("nope"); !errors.Is(err, ErrUnknownTurn) {
		t.Errorf("unknown turn err = %v", err)
	}

	cmds := h.synth.Commands()
	if len(cmds) != 2 {
		t.Fatalf("expected 2 playback commands, got %d", len(cmds))
	}
	if cmds[0].Text != "morning" || cmds[0].Rate != wordPlaybackRate {
		t.Errorf("word command = %+v", cmds[0])
	}
	if cmds[1].Text != "How are you today?" || cmds[1].Rate != 0 {
		t.Errorf("turn command = %+v", cmds[1])
	}
}

func TestController_ToggleTranslation(t *testing.T) {
	h := newHarness(t, nil)
	h.backend.turns = []timeline.Turn{
		{ID: "a1", Sender: timeline.SenderAgent, Content: "Hello", Feedback: "TRANSLATION:Xin chào"},
	}
	_ = h.ctrl.Refresh(context.Background())

	if err := h.ctrl.ToggleTranslation("a1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	entry := h.ctrl.Entries()[0]
	if !entry.ShowTranslation {
		t.Error("expected translation flag set")
	}
	if err := h.ctrl.ToggleTranslation("missing"); !errors.Is(err, ErrUnknownTurn) {
		t.Errorf("toggle unknown = %v", err)
	}
}

func TestController_End(t *testing.T) {
	score1, score2 := 0.5, 1.0
	h := newHarness(t, nil)
	h.backend.turns = []timeline.Turn{
		{ID: "a1", Sender: timeline.SenderAgent, Content: "Hi"},
		{ID: "u1", Sender: timeline.SenderUser, Content: "hello", PronunciationScore: &score1},
		{ID: "u2", Sender: timeline.SenderUser, Content: "goodbye", PronunciationScore: &score2},
	}

	summary, err := h.ctrl.End(context.Background())
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if !h.backend.ended {
		t.Error("backend end endpoint was not called")
	}
	if summary.TotalTurns != 3 {
		t.Errorf("TotalTurns = %d", summary.TotalTurns)
	}
	if summary.AveragePronunciationScore != 0.75 {
		t.Errorf("AveragePronunciationScore = %v", summary.AveragePronunciationScore)
	}

	if _, err := h.ctrl.End(context.Background()); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("second end = %v", err)
	}
	if err := h.ctrl.SendText(context.Background(), "late"); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("send after end = %v", err)
	}
	if err := h.ctrl.StartRecording(context.Background()); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("start after end = %v", err)
	}
}
