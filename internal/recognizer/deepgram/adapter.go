// Package deepgram provides a Deepgram streaming recognizer adapter over
// websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/binh123-ol/english-learning/internal/recognizer"
	"github.com/binh123-ol/english-learning/internal/transcript"
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey     string
	APIBaseURL string
	Model      string
	Language   string

	// AudioSource supplies raw PCM audio for the session. Defaults to
	// stdin, so a capture process can be piped in.
	AudioSource io.Reader

	SampleRate int
	Channels   int
	ChunkSize  int
}

// Adapter implements recognizer.Adapter for Deepgram.
type Adapter struct {
	cfg Config

	mu      sync.Mutex
	session *session
}

// New creates a Deepgram adapter.
func New(cfg Config) *Adapter {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.AudioSource == nil {
		cfg.AudioSource = os.Stdin
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	return &Adapter{cfg: cfg}
}

// Start dials the listen endpoint and begins streaming audio from the
// configured source.
func (a *Adapter) Start(ctx context.Context, cb recognizer.Callback) error {
	if strings.TrimSpace(a.cfg.APIKey) == "" {
		return recognizer.NewCaptureError(recognizer.KindPermissionDenied,
			errors.New("DEEPGRAM_API_KEY is not configured"))
	}

	wsURL, err := listenURL(a.cfg)
	if err != nil {
		return recognizer.NewCaptureError(recognizer.KindOther, err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+a.cfg.APIKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		kind := recognizer.KindOther
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			kind = recognizer.KindPermissionDenied
		}
		return recognizer.NewCaptureError(kind, fmt.Errorf("connect to deepgram: %w", err))
	}

	s := &session{
		conn: conn,
		cb:   cb,
		cfg:  a.cfg,
		done: make(chan struct{}),
	}

	a.mu.Lock()
	a.session = s
	a.mu.Unlock()

	go s.readLoop()
	go s.writeLoop()
	return nil
}

// Stop half-closes the current session; events already delivered stand.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.closeSend()
}

// Close tears the current session down.
func (a *Adapter) Close() error {
	a.mu.Lock()
	s := a.session
	a.session = nil
	a.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.close()
}

func listenURL(cfg Config) (string, error) {
	base := strings.Replace(cfg.APIBaseURL, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)

	u, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram URL: %w", err)
	}

	q := u.Query()
	q.Set("model", cfg.Model)
	q.Set("language", cfg.Language)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", fmt.Sprintf("%d", cfg.SampleRate))
	q.Set("channels", fmt.Sprintf("%d", cfg.Channels))
	q.Set("interim_results", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// session is one live websocket recognition session.
type session struct {
	conn *websocket.Conn
	cb   recognizer.Callback
	cfg  Config

	seq int

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.Mutex
	sendClosed    bool
	done          chan struct{}
}

func (s *session) writeLoop() {
	buf := make([]byte, s.cfg.ChunkSize)
	for {
		n, err := s.cfg.AudioSource.Read(buf)
		if n > 0 {
			s.sendMu.Lock()
			closed := s.sendClosed
			if !closed {
				err2 := s.conn.WriteMessage(websocket.BinaryMessage, buf[:n])
				if err2 != nil {
					s.sendMu.Unlock()
					return
				}
			}
			s.sendMu.Unlock()
			if closed {
				return
			}
		}
		if err != nil {
			_ = s.closeSend()
			return
		}
	}
}

func (s *session) readLoop() {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// Deliberate shutdown.
			default:
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseNoStatusReceived,
				) {
					s.cb.OnEnd()
				} else {
					s.cb.OnError(recognizer.NewCaptureError(recognizer.KindOther,
						fmt.Errorf("read provider event: %w", err)))
				}
			}
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			s.cb.OnError(recognizer.NewCaptureError(recognizer.KindOther, errors.New(message)))
			return
		}

		text, confidence := response.best()
		if text == "" {
			continue
		}

		event := transcript.RecognitionEvent{
			Sequence: s.seq,
			Results: []transcript.ResultSlot{{
				IsFinal:    response.IsFinal || response.SpeechFinal,
				Text:       text,
				Confidence: confidence,
			}},
		}
		s.seq++
		s.cb.OnEvent(event)
	}
}

func (s *session) closeSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
		s.sendMu.Unlock()
	})
	return nil
}

func (s *session) close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.closeSend()
		_ = s.conn.Close()
	})
	return nil
}

// listenResponse is the subset of Deepgram's streaming response we consume.
type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (r listenResponse) best() (string, float64) {
	for _, alt := range r.Channel.Alternatives {
		text := strings.TrimSpace(alt.Transcript)
		if text != "" {
			return text, alt.Confidence
		}
	}
	return "", 0
}
