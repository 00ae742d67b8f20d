package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the game service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal          *prometheus.CounterVec
	TurnDuration        *prometheus.HistogramVec
	WindowTokens        prometheus.Histogram
	WindowMessages      prometheus.Histogram
	GenerationsTotal    *prometheus.CounterVec
	ModerationFailOpen  prometheus.Counter
	ModerationRejected  prometheus.Counter
	StateConflictsTotal prometheus.Counter
}

// NewMetrics creates the collectors on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		TurnsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campfire_turns_total",
				Help: "Total number of turns by stage and result status",
			},
			[]string{"stage", "status"},
		),
		TurnDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campfire_turn_duration_seconds",
				Help:    "Duration of turns in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		WindowTokens: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campfire_window_tokens",
				Help:    "Estimated tokens of each built context window",
				Buckets: prometheus.ExponentialBuckets(64, 2, 10),
			},
		),
		WindowMessages: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campfire_window_messages",
				Help:    "Messages selected into each context window",
				Buckets: prometheus.LinearBuckets(0, 5, 12),
			},
		),
		GenerationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campfire_generations_total",
				Help: "Generator calls by result status",
			},
			[]string{"status"},
		),
		ModerationFailOpen: f.NewCounter(
			prometheus.CounterOpts{
				Name: "campfire_moderation_fail_open_total",
				Help: "Moderation checks that failed and were treated as allowed",
			},
		),
		ModerationRejected: f.NewCounter(
			prometheus.CounterOpts{
				Name: "campfire_moderation_rejected_total",
				Help: "Player replies rejected by moderation",
			},
		),
		StateConflictsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "campfire_state_conflicts_total",
				Help: "Turns rejected because the session state changed concurrently",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordTurn(stage, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(stage, status).Inc()
	m.TurnDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *Metrics) RecordWindow(messages, tokens int) {
	if m == nil {
		return
	}
	m.WindowMessages.Observe(float64(messages))
	m.WindowTokens.Observe(float64(tokens))
}

func (m *Metrics) RecordGeneration(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.GenerationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordModerationFailOpen() {
	if m == nil {
		return
	}
	m.ModerationFailOpen.Inc()
}

func (m *Metrics) RecordModerationRejected() {
	if m == nil {
		return
	}
	m.ModerationRejected.Inc()
}

func (m *Metrics) RecordStateConflict() {
	if m == nil {
		return
	}
	m.StateConflictsTotal.Inc()
}
