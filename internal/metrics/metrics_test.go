package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestResourceHelpers(t *testing.T) {
	SetResourceInUse("test_type", 3)
	require.Equal(t, 3.0, GetResourceInUse("test_type"))

	before := GetResourceRequests("test_type", "exhausted")
	RecordResourceRequest("test_type", "exhausted")
	require.Equal(t, before+1, GetResourceRequests("test_type", "exhausted"))
}

func TestBusHelpers(t *testing.T) {
	before := GetBusDropped("signals", "unknown")
	IncBusDropReason("signals", "")
	require.Equal(t, before+1, GetBusDropped("signals", "unknown"))

	SetBusSubscribers("signals", 2)
	require.Equal(t, 2.0, GetBusSubscribers("signals"))
}

func TestRecordActivation(t *testing.T) {
	before := GetActivations("ok")
	RecordActivation("ok")
	require.Equal(t, before+1, GetActivations("ok"))
}

func TestRecordConfigReload(t *testing.T) {
	before := counterValue(t, configReloadsTotal.WithLabelValues("failed"))
	RecordConfigReload("failed")
	require.Equal(t, before+1, counterValue(t, configReloadsTotal.WithLabelValues("failed")))

	v := counterValue(t, configValidationErrors)
	IncConfigValidationError()
	require.Equal(t, v+1, counterValue(t, configValidationErrors))
}

func TestRecordHTTPRequestUnmatched(t *testing.T) {
	before := counterValue(t, HTTPRequestsTotal.WithLabelValues("unmatched", "404"))
	RecordHTTPRequest("", "404")
	require.Equal(t, before+1, counterValue(t, HTTPRequestsTotal.WithLabelValues("unmatched", "404")))
}
