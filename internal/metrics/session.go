// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// ActivationsTotal counts Play/Pause activations by outcome.
	ActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "umms_activations_total",
		Help: "Total number of session activations, by outcome.",
	}, []string{"outcome"})

	// SessionsActive tracks the number of live player sessions.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "umms_sessions_active",
		Help: "Current number of player sessions.",
	})

	// ProbeDuration observes how long stream probing takes until completion or failure.
	ProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "umms_probe_duration_seconds",
		Help:    "Duration of stream probing, by outcome.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"outcome"})

	// SignalsTotal counts emitted client signals by kind.
	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "umms_signals_total",
		Help: "Total number of signals emitted to clients, by kind.",
	}, []string{"kind"})
)

// RecordActivation increments the activation counter.
func RecordActivation(outcome string) {
	ActivationsTotal.WithLabelValues(outcome).Inc()
}

// IncSessionsActive increments the session gauge.
func IncSessionsActive() {
	SessionsActive.Inc()
}

// DecSessionsActive decrements the session gauge.
func DecSessionsActive() {
	SessionsActive.Dec()
}

// ObserveProbe records a probe duration in seconds.
func ObserveProbe(outcome string, seconds float64) {
	ProbeDuration.WithLabelValues(outcome).Observe(seconds)
}

// RecordSignal increments the signal counter.
func RecordSignal(kind string) {
	SignalsTotal.WithLabelValues(kind).Inc()
}

// GetActivations returns the current activation count for an outcome (for testing).
func GetActivations(outcome string) float64 {
	var m dto.Metric
	if err := ActivationsTotal.WithLabelValues(outcome).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
