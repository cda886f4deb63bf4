package observability

import (
	"context"

	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by session hooks.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Completions *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Stale       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runecast_session_transitions_total",
				Help: "Session status transitions",
			},
			[]string{"from", "to", "event"},
		),
		Completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "runecast_interpretations_total",
				Help: "Interpreter calls by outcome",
			},
			[]string{"spread", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "runecast_interpretation_duration_seconds",
				Help:    "Duration of interpreter calls",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"spread"},
		),
		Stale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "runecast_stale_responses_total",
			Help: "Interpreter responses dropped because the session moved on",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.Completions, m.Duration, m.Stale)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(string(e.From), string(e.To), e.Event).Inc()
		},
		OnCompletionDone: func(_ context.Context, e *domain.CompletionEvent) {
			outcome := "ok"
			if e.Degraded {
				outcome = "degraded"
			}
			m.Completions.WithLabelValues(e.Spread, outcome).Inc()
			m.Duration.WithLabelValues(e.Spread).Observe(e.Duration.Seconds())
		},
		OnStaleResponse: func(context.Context, *domain.CompletionEvent) {
			m.Stale.Inc()
		},
	}
}
