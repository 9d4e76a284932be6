// Package backend is the REST client for the conversation backend, which
// stores conversation turns and computes pronunciation scores server-side.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/binh123-ol/english-learning/internal/observability/logging"
	"github.com/binh123-ol/english-learning/internal/observability/metrics"
	"github.com/binh123-ol/english-learning/internal/timeline"
	"github.com/binh123-ol/english-learning/internal/transcript"
)

// Client talks to the conversation backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a backend client. baseURL has no trailing slash.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     logging.WithComponent("backend"),
	}
}

// SendTurnRequest is the body of a turn send.
type SendTurnRequest struct {
	Message              string                  `json:"message"`
	AudioFileURL         string                  `json:"audioFileUrl"`
	PronunciationDetails []transcript.WordDetail `json:"pronunciationDetails"`
}

// FetchTurns retrieves the full ordered turn list for a conversation.
func (c *Client) FetchTurns(ctx context.Context, conversationID string) ([]timeline.Turn, error) {
	start := time.Now()
	defer func() { metrics.DefaultMetrics.RecordBackendRequest("fetch_turns", time.Since(start).Seconds()) }()

	url := fmt.Sprintf("%s/conversations/%s/messages", c.baseURL, conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch turns: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch turns: unexpected status %d", resp.StatusCode)
	}

	var turns []timeline.Turn
	if err := json.NewDecoder(resp.Body).Decode(&turns); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}

	metrics.DefaultMetrics.RecordTimelineFetch()
	c.log.Debug().Str("conversationId", conversationID).Int("turns", len(turns)).Msg("Fetched timeline")
	return turns, nil
}

// SendTurn appends a user turn to the conversation.
func (c *Client) SendTurn(ctx context.Context, conversationID string, body SendTurnRequest) error {
	start := time.Now()
	defer func() { metrics.DefaultMetrics.RecordBackendRequest("send_turn", time.Since(start).Seconds()) }()

	url := fmt.Sprintf("%s/conversations/%s/messages", c.baseURL, conversationID)
	err := c.post(ctx, url, body)
	metrics.DefaultMetrics.RecordTurnSend(err)
	if err != nil {
		return fmt.Errorf("send turn: %w", err)
	}

	c.log.Info().Str("conversationId", conversationID).Int("words", len(body.PronunciationDetails)).Msg("Turn sent")
	return nil
}

// EndSession marks the conversation finished. Summary statistics are computed
// client-side afterwards.
func (c *Client) EndSession(ctx context.Context, conversationID string) error {
	start := time.Now()
	defer func() { metrics.DefaultMetrics.RecordBackendRequest("end_session", time.Since(start).Seconds()) }()

	url := fmt.Sprintf("%s/conversations/%s/end", c.baseURL, conversationID)
	if err := c.post(ctx, url, nil); err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	c.log.Info().Str("conversationId", conversationID).Msg("Session ended")
	return nil
}

func (c *Client) post(ctx context.Context, url string, body any) error {
	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
