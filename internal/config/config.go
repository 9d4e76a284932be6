package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the practice client.
type Config struct {
	ConversationID string

	Backend    BackendConfig
	Recognizer RecognizerConfig
	Kafka      KafkaConfig
	Log        LogConfig

	// SynthURL points at the optional speech synthesis service. Empty
	// disables playback.
	SynthURL string

	// HTTPAddr serves the local status API.
	HTTPAddr string
	// MetricsAddr serves Prometheus metrics and health probes.
	MetricsAddr string
}

// BackendConfig describes the conversation backend.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RecognizerConfig selects and configures the speech recognizer provider.
type RecognizerConfig struct {
	Provider string // mock, google, deepgram
	Language string

	DeepgramAPIKey  string
	DeepgramBaseURL string
	DeepgramModel   string
}

// KafkaConfig configures the optional session-event publisher.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicTurns   string
	TopicSession string
	Principal    string
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string
	Format string
}

// Load resolves configuration from environment variables and defaults.
func Load() *Config {
	return &Config{
		ConversationID: envOrDefault("PRACTICE_CONVERSATION_ID", ""),
		Backend: BackendConfig{
			BaseURL: envOrDefault("PRACTICE_BACKEND_URL", "http://localhost:8080/api"),
			Timeout: envDuration("PRACTICE_BACKEND_TIMEOUT", 15*time.Second),
		},
		Recognizer: RecognizerConfig{
			Provider:        envOrDefault("PRACTICE_RECOGNIZER", "mock"),
			Language:        envOrDefault("PRACTICE_LANGUAGE", "en-US"),
			DeepgramAPIKey:  envOrDefault("DEEPGRAM_API_KEY", ""),
			DeepgramBaseURL: envOrDefault("DEEPGRAM_API_URL", ""),
			DeepgramModel:   envOrDefault("DEEPGRAM_MODEL", "nova-2"),
		},
		Kafka: KafkaConfig{
			Enabled:      envBool("KAFKA_ENABLED", false),
			Brokers:      envList("KAFKA_BROKERS"),
			TopicTurns:   envOrDefault("KAFKA_TOPIC_TURNS", "practice.turn.sent"),
			TopicSession: envOrDefault("KAFKA_TOPIC_SESSION", "practice.session.ended"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", "svc-speaking-practice"),
		},
		SynthURL: envOrDefault("PRACTICE_SYNTH_URL", ""),
		Log: LogConfig{
			Level:  envOrDefault("LOG_LEVEL", "info"),
			Format: envOrDefault("LOG_FORMAT", "json"),
		},
		HTTPAddr:    envOrDefault("HTTP_ADDR", ":8081"),
		MetricsAddr: envOrDefault("METRICS_ADDR", ":9091"),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
