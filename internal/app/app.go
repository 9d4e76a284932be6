package app

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/binh123-ol/english-learning/internal/config"
	"github.com/binh123-ol/english-learning/internal/observability/logging"
)

// Application holds process-wide state for the practice client.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Config) *Application {
	logging.Init(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		TimeFormat: time.RFC3339,
	})

	a := &Application{
		Cfg: cfg,
		Logger: logging.Logger().With().
			Str("service", "speaking-practice").
			Logger(),
	}

	a.Logger.Info().
		Str("logLevel", cfg.Log.Level).
		Str("recognizer", cfg.Recognizer.Provider).
		Msg("Speaking practice client created")
	return a
}

// Start performs any startup work required before the session begins.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Speaking practice client starting")
	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("Speaking practice client shutting down")
}
