// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	configValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "umms_config_validation_errors_total",
		Help: "Total number of configuration validation errors",
	})

	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "umms_config_reloads_total",
		Help: "Total number of configuration reloads, by outcome (success/failed).",
	}, []string{"outcome"})
)

func IncConfigValidationError() { configValidationErrors.Inc() }

// RecordConfigReload counts a hot reload attempt.
func RecordConfigReload(outcome string) {
	configReloadsTotal.WithLabelValues(outcome).Inc()
}
