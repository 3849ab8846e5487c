// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DBusCallsTotal counts client method calls by member and outcome.
	DBusCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "umms_dbus_calls_total",
		Help: "Total number of DBus method calls, by member and outcome (ok or DBus error name suffix).",
	}, []string{"member", "outcome"})

	// HTTPRequestsTotal counts API requests by route pattern and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "umms_http_requests_total",
		Help: "Total number of HTTP API requests, by route and status.",
	}, []string{"route", "status"})

	// SignalStreamClients tracks connected WebSocket signal clients.
	SignalStreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "umms_signal_stream_clients",
		Help: "Current number of WebSocket signal stream clients.",
	})
)

// RecordDBusCall counts one DBus method call.
func RecordDBusCall(member, outcome string) {
	DBusCallsTotal.WithLabelValues(member, outcome).Inc()
}

// RecordHTTPRequest counts one API request. route must be the chi
// pattern, never the raw path.
func RecordHTTPRequest(route, status string) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(route, status).Inc()
}
