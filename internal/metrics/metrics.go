// Package metrics exposes Prometheus collectors for the chat pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "school_chatbot"

// Metrics reports pipeline outcomes, generative calls and request latency.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	outcomes        *prometheus.CounterVec
	generations     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// MustNewMetrics registers the collectors with reg, reusing collectors that are
// already registered under the same name. Any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "outcomes_total",
			Help:      "Chat messages by the stage that produced the reply and its label.",
		},
		[]string{"stage", "label"},
	)
	generations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "generations_total",
			Help:      "Generative service calls by purpose and result.",
		},
		[]string{"purpose", "result"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "request_duration_seconds",
			Help:      "Time spent handling one chat message.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	outcomes = register(reg, outcomes)
	generations = register(reg, generations)
	requestDuration = register(reg, requestDuration)

	return &Metrics{
		outcomes:        outcomes,
		generations:     generations,
		requestDuration: requestDuration,
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveOutcome counts a message answered at stage with label.
func (m *Metrics) ObserveOutcome(stage, label string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(stage, label).Inc()
}

// ObserveGeneration counts a generative call. result is "ok", "timeout" or
// "error".
func (m *Metrics) ObserveGeneration(purpose, result string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(purpose, result).Inc()
}

// ObserveRequest records how long a message answered at stage took.
func (m *Metrics) ObserveRequest(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(stage).Observe(d.Seconds())
}
