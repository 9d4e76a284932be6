package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/binh123-ol/english-learning/internal/app"
	"github.com/binh123-ol/english-learning/internal/backend"
	"github.com/binh123-ol/english-learning/internal/config"
	"github.com/binh123-ol/english-learning/internal/events"
	"github.com/binh123-ol/english-learning/internal/feedback"
	"github.com/binh123-ol/english-learning/internal/httpapi"
	"github.com/binh123-ol/english-learning/internal/observability"
	"github.com/binh123-ol/english-learning/internal/recognizer"
	"github.com/binh123-ol/english-learning/internal/recognizer/deepgram"
	"github.com/binh123-ol/english-learning/internal/recognizer/google"
	"github.com/binh123-ol/english-learning/internal/recognizer/mock"
	"github.com/binh123-ol/english-learning/internal/recorder"
	"github.com/binh123-ol/english-learning/internal/session"
	"github.com/binh123-ol/english-learning/internal/synth"
	"github.com/binh123-ol/english-learning/internal/timeline"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		application.Logger.Fatal().Err(err).Msg("Startup failed")
	}
	defer application.Shutdown()

	ctx := context.Background()

	adapter, err := newAdapter(ctx, cfg)
	if err != nil {
		application.Logger.Fatal().Err(err).Str("provider", cfg.Recognizer.Provider).Msg("Recognizer init failed")
	}
	defer func() { _ = adapter.Close() }()

	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicTurns:   cfg.Kafka.TopicTurns,
		TopicSession: cfg.Kafka.TopicSession,
		Principal:    cfg.Kafka.Principal,
	})
	defer func() { _ = publisher.Close() }()

	var speaker synth.Synthesizer = synth.Noop{}
	if cfg.SynthURL != "" {
		speaker = synth.NewHTTPSynthesizer(cfg.SynthURL, 10*time.Second)
	}

	ctrl := session.New(session.Deps{
		ConversationID: cfg.ConversationID,
		Language:       cfg.Recognizer.Language,
		Machine:        recorder.New(adapter),
		Timeline:       timeline.New(),
		Backend:        backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout),
		Feedback:       feedback.NewOrchestrator(feedback.NewHTTPAnalyzer(cfg.Backend.BaseURL, 30*time.Second)),
		Synth:          speaker,
		Publisher:      publisher,
	})

	// Pull the existing conversation before serving; a cold backend is not
	// fatal, the first successful send refreshes the view anyway.
	if err := ctrl.Refresh(ctx); err != nil {
		application.Logger.Warn().Err(err).Msg("Initial timeline fetch failed")
	}

	obs := observability.NewServer(cfg.MetricsAddr)
	obs.Start()

	api := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(ctrl),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		application.Logger.Info().Str("addr", cfg.HTTPAddr).Msg("Session API listening")
		if err := api.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			application.Logger.Fatal().Err(err).Msg("Session API server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	application.Logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error().Err(err).Msg("Session API shutdown failed")
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		application.Logger.Error().Err(err).Msg("Observability shutdown failed")
	}
}

// newAdapter selects the speech recognizer provider.
func newAdapter(ctx context.Context, cfg *config.Config) (recognizer.Adapter, error) {
	switch cfg.Recognizer.Provider {
	case "google":
		return google.New(ctx, google.Config{LanguageCode: cfg.Recognizer.Language})
	case "deepgram":
		return deepgram.New(deepgram.Config{
			APIKey:     cfg.Recognizer.DeepgramAPIKey,
			APIBaseURL: cfg.Recognizer.DeepgramBaseURL,
			Model:      cfg.Recognizer.DeepgramModel,
			Language:   cfg.Recognizer.Language,
		}), nil
	default:
		return mock.New(), nil
	}
}
