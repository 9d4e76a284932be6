// Package synth models the external speech synthesizer as a one-way
// collaborator: text goes out, nothing comes back.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/binh123-ol/english-learning/internal/observability/logging"
)

// Command is one playback request. A zero Rate means the provider default;
// word playback uses a slower rate for clarity.
type Command struct {
	Text string  `json:"text"`
	Lang string  `json:"lang,omitempty"`
	Rate float64 `json:"rate,omitempty"`
}

// Synthesizer renders text to audio. Fire-and-forget: implementations must
// not block the caller on playback.
type Synthesizer interface {
	Speak(cmd Command)
}

// Noop discards all playback requests.
type Noop struct{}

func (Noop) Speak(Command) {}

// HTTPSynthesizer posts playback commands to an external synthesis service.
// Failures are logged and otherwise ignored.
type HTTPSynthesizer struct {
	url  string
	http *http.Client
}

// NewHTTPSynthesizer creates a synthesizer against the given endpoint.
func NewHTTPSynthesizer(url string, timeout time.Duration) *HTTPSynthesizer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSynthesizer{url: url, http: &http.Client{Timeout: timeout}}
}

// Speak posts the command on a background goroutine.
func (s *HTTPSynthesizer) Speak(cmd Command) {
	go func() {
		log := logging.WithComponent("synth")

		buf, err := json.Marshal(cmd)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal playback command")
			return
		}

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.url, bytes.NewReader(buf))
		if err != nil {
			log.Error().Err(err).Msg("Failed to build playback request")
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.http.Do(req)
		if err != nil {
			log.Warn().Err(err).Msg("Playback request failed")
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
}

// Recorder captures playback commands for tests.
type Recorder struct {
	mu   sync.Mutex
	cmds []Command
}

func (r *Recorder) Speak(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

// Commands returns a copy of the captured playback commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}
