// Package metrics provides Prometheus metrics for the umms daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Labels are bounded by resource type and outcome only; no session ids.

var (
	// ResourceCapacity reports the fixed pool size per resource type.
	ResourceCapacity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "umms_resource_capacity",
		Help: "Number of hardware units in the pool, by resource type.",
	}, []string{"type"})

	// ResourceInUse reports how many units of each type are currently held.
	ResourceInUse = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "umms_resource_in_use",
		Help: "Number of hardware units currently held, by resource type.",
	}, []string{"type"})

	// ResourceRequestsTotal counts arbiter requests by type and outcome.
	ResourceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "umms_resource_requests_total",
		Help: "Total number of resource requests, by type and outcome (preferred/fallback/granted/exhausted).",
	}, []string{"type", "outcome"})

	// ResourceReleasesTotal counts releases by type and outcome.
	ResourceReleasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "umms_resource_releases_total",
		Help: "Total number of resource releases, by type and outcome (released/unknown).",
	}, []string{"type", "outcome"})
)

// SetResourceCapacity sets the capacity gauge for a type.
func SetResourceCapacity(resourceType string, n int) {
	ResourceCapacity.WithLabelValues(resourceType).Set(float64(n))
}

// SetResourceInUse sets the in-use gauge for a type.
func SetResourceInUse(resourceType string, n int) {
	ResourceInUse.WithLabelValues(resourceType).Set(float64(n))
}

// RecordResourceRequest increments the request counter.
func RecordResourceRequest(resourceType, outcome string) {
	ResourceRequestsTotal.WithLabelValues(resourceType, outcome).Inc()
}

// RecordResourceRelease increments the release counter.
func RecordResourceRelease(resourceType, outcome string) {
	ResourceReleasesTotal.WithLabelValues(resourceType, outcome).Inc()
}

// GetResourceInUse returns the current value of the in-use gauge (for testing).
func GetResourceInUse(resourceType string) float64 {
	var m dto.Metric
	if err := ResourceInUse.WithLabelValues(resourceType).Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// GetResourceRequests returns the current value of a request counter (for testing).
func GetResourceRequests(resourceType, outcome string) float64 {
	var m dto.Metric
	if err := ResourceRequestsTotal.WithLabelValues(resourceType, outcome).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
