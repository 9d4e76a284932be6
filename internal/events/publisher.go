// Package events publishes practice-session events for downstream analytics.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/binh123-ol/english-learning/internal/observability/metrics"
	"github.com/binh123-ol/english-learning/internal/transcript"
)

// TurnSentEvent is emitted after a user turn is accepted by the backend.
type TurnSentEvent struct {
	EventType      string                  `json:"eventType"`
	ConversationID string                  `json:"conversationId"`
	Timestamp      int64                   `json:"timestamp"`
	Text           string                  `json:"text"`
	WordCount      int                     `json:"wordCount"`
	Details        []transcript.WordDetail `json:"details,omitempty"`
}

// SessionEndedEvent is emitted when the user ends the practice session.
type SessionEndedEvent struct {
	EventType      string  `json:"eventType"`
	ConversationID string  `json:"conversationId"`
	Timestamp      int64   `json:"timestamp"`
	TotalTurns     int     `json:"totalTurns"`
	AverageScore   float64 `json:"averageScore"`
}

// Publisher publishes session events to separate Kafka topics. With no
// brokers configured it degrades to log-only mode.
type Publisher struct {
	writerTurns   *kafka.Writer
	writerSession *kafka.Writer
	principal     string
	topicTurns    string
	topicSession  string
	enabled       bool
	metrics       *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicTurns   string
	TopicSession string
	Principal    string
	Enabled      bool
}

// New creates a new session event publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{enabled: false, metrics: m}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:    cfg.Principal,
			topicTurns:   cfg.TopicTurns,
			topicSession: cfg.TopicSession,
			enabled:      false,
			metrics:      m,
		}
	}

	// Longer dial timeouts for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTurns", cfg.TopicTurns).
		Str("topicSession", cfg.TopicSession).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerTurns:   newWriter(cfg.TopicTurns),
		writerSession: newWriter(cfg.TopicSession),
		principal:     cfg.Principal,
		topicTurns:    cfg.TopicTurns,
		topicSession:  cfg.TopicSession,
		enabled:       true,
		metrics:       m,
	}
}

// PublishTurnSent publishes a turn-sent event keyed by conversation.
func (p *Publisher) PublishTurnSent(ctx context.Context, ev TurnSentEvent) error {
	ev.EventType = "practice.turn.sent"
	ev.Timestamp = time.Now().UnixMilli()
	return p.publish(ctx, p.writerTurns, p.topicTurns, ev.ConversationID, ev)
}

// PublishSessionEnded publishes a session-ended event keyed by conversation.
func (p *Publisher) PublishSessionEnded(ctx context.Context, ev SessionEndedEvent) error {
	ev.EventType = "practice.session.ended"
	ev.Timestamp = time.Now().UnixMilli()
	return p.publish(ctx, p.writerSession, p.topicSession, ev.ConversationID, ev)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordPublish(topic, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordPublish(topic, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordPublish(topic, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerTurns != nil {
		if e := p.writerTurns.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing turns writer")
			err = e
		}
	}
	if p.writerSession != nil {
		if e := p.writerSession.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing session writer")
			err = e
		}
	}
	return err
}
