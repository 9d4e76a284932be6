// Package httpapi exposes the practice session over a local REST surface
// for the rendering layer.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/binh123-ol/english-learning/internal/recorder"
	"github.com/binh123-ol/english-learning/internal/session"
	"github.com/binh123-ol/english-learning/internal/timeline"
	"github.com/binh123-ol/english-learning/internal/transcript"
)

// NewRouter constructs the HTTP router over a session controller.
func NewRouter(ctrl *session.Controller) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	h := &handlers{ctrl: ctrl}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", h.state)
		r.Post("/recording/start", h.startRecording)
		r.Post("/recording/stop", h.stopRecording)
		r.Post("/recording/retake", h.retake)
		r.Post("/recording/ack", h.acknowledge)

		r.Get("/review", h.review)
		r.Post("/review/send", h.sendRecorded)
		r.Post("/review/discard", h.discardReview)
		r.Post("/review/feedback", h.requestFeedback)

		r.Get("/turns", h.turns)
		r.Post("/turns", h.sendText)
		r.Post("/turns/{id}/translation", h.toggleTranslation)
		r.Post("/turns/{id}/speak", h.speakTurn)

		r.Post("/speak", h.speakWord)
		r.Post("/session/end", h.endSession)
	})

	return r
}

type handlers struct {
	ctrl *session.Controller
}

type stateResponse struct {
	ConversationID string           `json:"conversationId"`
	Phase          string           `json:"phase"`
	Live           string           `json:"live,omitempty"`
	Failure        *failureResponse `json:"failure,omitempty"`
	Feedback       feedbackResponse `json:"feedback"`
	Ended          bool             `json:"ended"`
}

type failureResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type feedbackResponse struct {
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
}

func (h *handlers) state(w http.ResponseWriter, _ *http.Request) {
	status, text := h.ctrl.Feedback()
	resp := stateResponse{
		ConversationID: h.ctrl.ConversationID(),
		Phase:          h.ctrl.Phase().String(),
		Live:           h.ctrl.Live(),
		Feedback:       feedbackResponse{Status: status.String(), Text: text},
		Ended:          h.ctrl.Ended(),
	}
	if f := h.ctrl.Failure(); f != nil {
		resp.Failure = &failureResponse{Kind: string(f.Kind), Message: f.Message}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) startRecording(w http.ResponseWriter, r *http.Request) {
	h.transition(w, h.ctrl.StartRecording(r.Context()))
}

func (h *handlers) stopRecording(w http.ResponseWriter, _ *http.Request) {
	h.transition(w, h.ctrl.StopRecording())
}

func (h *handlers) retake(w http.ResponseWriter, r *http.Request) {
	h.transition(w, h.ctrl.Retake(r.Context()))
}

func (h *handlers) acknowledge(w http.ResponseWriter, _ *http.Request) {
	h.transition(w, h.ctrl.AcknowledgeError())
}

type reviewResponse struct {
	Text    string                  `json:"text"`
	Details []transcript.WordDetail `json:"details"`
}

func (h *handlers) review(w http.ResponseWriter, _ *http.Request) {
	text, details := h.ctrl.Review()
	if details == nil {
		details = []transcript.WordDetail{}
	}
	writeJSON(w, http.StatusOK, reviewResponse{Text: text, Details: details})
}

func (h *handlers) sendRecorded(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.SendRecorded(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) discardReview(w http.ResponseWriter, _ *http.Request) {
	h.transition(w, h.ctrl.DiscardReview())
}

func (h *handlers) requestFeedback(w http.ResponseWriter, r *http.Request) {
	started := h.ctrl.RequestFeedback(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": started})
}

func (h *handlers) turns(w http.ResponseWriter, _ *http.Request) {
	entries := h.ctrl.Entries()
	if entries == nil {
		entries = []timeline.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type sendTextRequest struct {
	Message string `json:"message"`
}

func (h *handlers) sendText(w http.ResponseWriter, r *http.Request) {
	var req sendTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if err := h.ctrl.SendText(r.Context(), req.Message); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) toggleTranslation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, h.ctrl.ToggleTranslation(chi.URLParam(r, "id")))
}

func (h *handlers) speakTurn(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.SpeakTurn(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type speakWordRequest struct {
	Word string `json:"word"`
}

func (h *handlers) speakWord(w http.ResponseWriter, r *http.Request) {
	var req speakWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	h.ctrl.SpeakWord(req.Word)
	w.WriteHeader(http.StatusAccepted)
}

type summaryResponse struct {
	TotalTurns   int     `json:"totalTurns"`
	AverageScore float64 `json:"averageScore"`
}

func (h *handlers) endSession(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ctrl.End(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		TotalTurns:   summary.TotalTurns,
		AverageScore: summary.AveragePronunciationScore,
	})
}

func (h *handlers) transition(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrUnknownTurn):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrNothingToSend),
		errors.Is(err, session.ErrSessionEnded),
		errors.Is(err, recorder.ErrNotListening),
		errors.Is(err, recorder.ErrNotReviewing),
		errors.Is(err, recorder.ErrNotInError),
		errors.Is(err, recorder.ErrBusy):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
