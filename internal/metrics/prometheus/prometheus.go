// Package prometheus implements metrics.Metrics with Prometheus collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iliamunaev/checkout-pipeline/internal/metrics"
)

// Metrics exports checkout metrics to a Prometheus registry.
type Metrics struct {
	attemptsStarted    prometheus.Counter
	attemptsSettled    *prometheus.CounterVec
	attemptsCancelled  *prometheus.CounterVec
	attemptDuration    *prometheus.HistogramVec
	stageDuration      *prometheus.HistogramVec
	staleCallbacks     *prometheus.CounterVec
	contractViolations *prometheus.CounterVec
}

var _ metrics.Metrics = (*Metrics)(nil)

// Config holds configuration for Metrics.
type Config struct {
	// Namespace prefixes every metric name.
	Namespace string
	// Registry receives the collectors. If nil, the default registerer is used.
	Registry prometheus.Registerer
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Namespace: "checkout",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// New registers the checkout collectors and returns them.
// It panics if a collector with the same name is already registered.
func New(cfg Config) *Metrics {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		attemptsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "attempts_started_total",
			Help:      "Total number of checkout attempts started",
		}),
		attemptsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "attempts_settled_total",
			Help:      "Total number of checkout attempts settled, by disposition",
		}, []string{"disposition"}),
		attemptsCancelled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "attempts_cancelled_total",
			Help:      "Total number of checkout attempts finished before settling, by phase",
		}, []string{"phase"}),
		attemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Time from purchase initiated to settlement",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}, []string{"disposition"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Collaborator call duration, by stage and outcome",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"stage", "outcome"}),
		staleCallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "stale_callbacks_total",
			Help:      "Collaborator results discarded because their attempt had already finished",
		}, []string{"stage"}),
		contractViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "contract_violations_total",
			Help:      "Collaborator results that broke the collaborator contract",
		}, []string{"collaborator"}),
	}
}

func (m *Metrics) AttemptStarted() {
	m.attemptsStarted.Inc()
}

func (m *Metrics) AttemptSettled(disposition string, d time.Duration) {
	m.attemptsSettled.WithLabelValues(disposition).Inc()
	m.attemptDuration.WithLabelValues(disposition).Observe(d.Seconds())
}

func (m *Metrics) AttemptCancelled(phase string) {
	m.attemptsCancelled.WithLabelValues(phase).Inc()
}

func (m *Metrics) StageCompleted(stage, outcome string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

func (m *Metrics) StaleCallback(stage string) {
	m.staleCallbacks.WithLabelValues(stage).Inc()
}

func (m *Metrics) ContractViolation(collaborator string) {
	m.contractViolations.WithLabelValues(collaborator).Inc()
}
