// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speaking_practice"

// Metrics holds all Prometheus metrics for the client core.
type Metrics struct {
	// Recording lifecycle metrics
	RecordingsStarted   prometheus.Counter
	RecordingsCompleted prometheus.Counter
	RecordingsEmpty     prometheus.Counter
	CaptureErrors       *prometheus.CounterVec

	// Transcript metrics
	RecognitionEvents prometheus.Counter
	WordsClassified   *prometheus.CounterVec

	// Conversation metrics
	TurnsSent       prometheus.Counter
	TurnSendErrors  prometheus.Counter
	TimelineFetches prometheus.Counter

	// AI feedback metrics
	FeedbackRequests   prometheus.Counter
	FeedbackFailures   prometheus.Counter
	FeedbackLatency    prometheus.Histogram
	FeedbackSuppressed prometheus.Counter

	// Backend round-trip metrics
	BackendLatency *prometheus.HistogramVec

	// Session event publish metrics
	PublishTotal   *prometheus.CounterVec
	PublishErrors  *prometheus.CounterVec
	PublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RecordingsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_started_total",
			Help:      "Total number of capture sessions started",
		}),
		RecordingsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_completed_total",
			Help:      "Total number of capture sessions that reached review",
		}),
		RecordingsEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_empty_total",
			Help:      "Total number of capture sessions that finalized nothing",
		}),
		CaptureErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_errors_total",
			Help:      "Total number of capture failures",
		}, []string{"kind"}),

		RecognitionEvents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_events_total",
			Help:      "Total number of recognizer events ingested",
		}),
		WordsClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "words_classified_total",
			Help:      "Total number of finalized words per pronunciation tier",
		}, []string{"tier"}),

		TurnsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_sent_total",
			Help:      "Total number of turns sent to the conversation backend",
		}),
		TurnSendErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_send_errors_total",
			Help:      "Total number of failed turn sends",
		}),
		TimelineFetches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_fetches_total",
			Help:      "Total number of timeline refetches",
		}),

		FeedbackRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_requests_total",
			Help:      "Total number of AI feedback requests issued",
		}),
		FeedbackFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_failures_total",
			Help:      "Total number of AI feedback requests that fell back",
		}),
		FeedbackLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feedback_latency_seconds",
			Help:      "AI feedback round-trip latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		FeedbackSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_suppressed_total",
			Help:      "Total number of feedback requests suppressed by single-flight",
		}),

		BackendLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_latency_seconds",
			Help:      "Conversation backend round-trip latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"operation"}),

		PublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Total number of session events published",
		}, []string{"topic"}),
		PublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_errors_total",
			Help:      "Total number of session event publish errors",
		}, []string{"topic"}),
		PublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_publish_latency_seconds",
			Help:      "Session event publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordRecordingStarted records a capture session starting.
func (m *Metrics) RecordRecordingStarted() {
	m.RecordingsStarted.Inc()
}

// RecordRecordingCompleted records a capture session reaching review.
func (m *Metrics) RecordRecordingCompleted() {
	m.RecordingsCompleted.Inc()
}

// RecordRecordingEmpty records a capture session that finalized nothing.
func (m *Metrics) RecordRecordingEmpty() {
	m.RecordingsEmpty.Inc()
}

// RecordCaptureError records a capture failure by kind.
func (m *Metrics) RecordCaptureError(kind string) {
	m.CaptureErrors.WithLabelValues(kind).Inc()
}

// RecordRecognitionEvent records one recognizer event ingested.
func (m *Metrics) RecordRecognitionEvent() {
	m.RecognitionEvents.Inc()
}

// RecordWordClassified records one finalized word landing in a tier.
func (m *Metrics) RecordWordClassified(tier string) {
	m.WordsClassified.WithLabelValues(tier).Inc()
}

// RecordTurnSend records a turn send attempt.
func (m *Metrics) RecordTurnSend(err error) {
	m.TurnsSent.Inc()
	if err != nil {
		m.TurnSendErrors.Inc()
	}
}

// RecordTimelineFetch records a timeline refetch.
func (m *Metrics) RecordTimelineFetch() {
	m.TimelineFetches.Inc()
}

// RecordFeedbackRequest records an AI feedback round trip.
func (m *Metrics) RecordFeedbackRequest(err error, latencySeconds float64) {
	m.FeedbackRequests.Inc()
	m.FeedbackLatency.Observe(latencySeconds)
	if err != nil {
		m.FeedbackFailures.Inc()
	}
}

// RecordFeedbackSuppressed records a feedback request dropped by single-flight.
func (m *Metrics) RecordFeedbackSuppressed() {
	m.FeedbackSuppressed.Inc()
}

// RecordBackendRequest records a conversation backend round trip.
func (m *Metrics) RecordBackendRequest(operation string, latencySeconds float64) {
	m.BackendLatency.WithLabelValues(operation).Observe(latencySeconds)
}

// RecordPublish records a session event publish attempt.
func (m *Metrics) RecordPublish(topic string, err error, latencySeconds float64) {
	m.PublishTotal.WithLabelValues(topic).Inc()
	m.PublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.PublishErrors.WithLabelValues(topic).Inc()
	}
}
