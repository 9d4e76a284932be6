// Package feedback manages the asynchronous round trip to the AI feedback
// service that reviews a transcript before the user sends it.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/binh123-ol/english-learning/internal/transcript"
)

// Analyzer produces advisory feedback for a reviewed transcript.
type Analyzer interface {
	Analyze(ctx context.Context, text string, details []transcript.WordDetail) (string, error)
}

// HTTPAnalyzer calls the AI feedback service over HTTP.
type HTTPAnalyzer struct {
	baseURL string
	http    *http.Client
}

// NewHTTPAnalyzer creates an analyzer against the given service base URL.
func NewHTTPAnalyzer(baseURL string, timeout time.Duration) *HTTPAnalyzer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAnalyzer{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type analyzeRequest struct {
	Text    string                  `json:"text"`
	Details []transcript.WordDetail `json:"details"`
}

type analyzeResponse struct {
	Feedback string `json:"feedback"`
}

// Analyze posts the transcript for review and returns the advisory text.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, text string, details []transcript.WordDetail) (string, error) {
	buf, err := json.Marshal(analyzeRequest{Text: text, Details: details})
	if err != nil {
		return "", fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/speech/analyze", bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analyze: unexpected status %d", resp.StatusCode)
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode analyze response: %w", err)
	}
	return out.Feedback, nil
}
