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
	busDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "umms_bus_dropped_total",
		Help: "Signals a slow subscriber did not receive, by topic and reason",
	}, []string{"topic", "reason"})

	busSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "umms_bus_subscribers",
		Help: "Live subscribers per bus topic (DBus forwarder, WebSocket clients)",
	}, []string{"topic"})
)

// IncBusDropReason counts one message lost on topic; reason is timeout or
// canceled.
func IncBusDropReason(topic, reason string) {
	busDropped.WithLabelValues(topic, orUnknown(reason)).Inc()
}

// SetBusSubscribers reports the subscriber count of topic.
func SetBusSubscribers(topic string, n int) {
	busSubscribers.WithLabelValues(topic).Set(float64(n))
}

// GetBusDropped returns the drop counter for topic and reason (for testing).
func GetBusDropped(topic, reason string) float64 {
	var m dto.Metric
	if err := busDropped.WithLabelValues(topic, reason).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// GetBusSubscribers returns the subscriber gauge for topic (for testing).
func GetBusSubscribers(topic string) float64 {
	var m dto.Metric
	if err := busSubscribers.WithLabelValues(topic).Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
