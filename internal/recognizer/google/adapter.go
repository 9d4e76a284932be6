// Package google provides a Google Cloud Speech-to-Text recognizer adapter.
package google

import (
	"context"
	"errors"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/binh123-ol/english-learning/internal/recognizer"
	"github.com/binh123-ol/english-learning/internal/transcript"
)

// Config holds recognition settings.
type Config struct {
	LanguageCode    string
	SampleRateHertz int32
}

// Adapter implements recognizer.Adapter using Google Cloud Speech-to-Text.
type Adapter struct {
	client *speech.Client
	cfg    Config

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
	cb     recognizer.Callback
	seq    int
}

// New creates a new Google recognizer adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.SampleRateHertz == 0 {
		cfg.SampleRateHertz = 16000
	}
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, classifyErr(err)
	}
	return &Adapter{client: c, cfg: cfg}, nil
}

// Start begins a streaming recognition session and sends the initial config.
// Transcript responses are consumed on a background goroutine.
func (a *Adapter) Start(ctx context.Context, cb recognizer.Callback) error {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return classifyErr(err)
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: a.cfg.SampleRateHertz,
					LanguageCode:    a.cfg.LanguageCode,
				},
				InterimResults: true,
			},
		},
	})
	if err != nil {
		return classifyErr(err)
	}

	a.mu.Lock()
	a.stream = stream
	a.cb = cb
	a.seq = 0
	a.mu.Unlock()

	go a.listen(stream, cb)
	return nil
}

// listen receives transcript responses and forwards them as recognition
// events until the stream ends.
func (a *Adapter) listen(stream speechpb.Speech_StreamingRecognizeClient, cb recognizer.Callback) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				cb.OnEnd()
			} else {
				cb.OnError(classifyErr(err))
			}
			return
		}

		event := transcript.RecognitionEvent{}
		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			alt := r.Alternatives[0]
			event.Results = append(event.Results, transcript.ResultSlot{
				IsFinal:    r.IsFinal,
				Text:       alt.Transcript,
				Confidence: float64(alt.Confidence),
			})
		}
		if len(event.Results) == 0 {
			continue
		}

		a.mu.Lock()
		event.Sequence = a.seq
		a.seq++
		a.mu.Unlock()

		cb.OnEvent(event)
	}
}

// Stop half-closes the streaming session; events already received stand.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	stream := a.stream
	a.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.CloseSend()
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// classifyErr maps a gRPC failure onto the capture error taxonomy.
func classifyErr(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return recognizer.NewCaptureError(recognizer.KindOther, err)
	}
	switch st.Code() {
	case codes.PermissionDenied, codes.Unauthenticated:
		return recognizer.NewCaptureError(recognizer.KindPermissionDenied, err)
	case codes.DeadlineExceeded:
		return recognizer.NewCaptureError(recognizer.KindNoSpeech, err)
	default:
		return recognizer.NewCaptureError(recognizer.KindOther, err)
	}
}
