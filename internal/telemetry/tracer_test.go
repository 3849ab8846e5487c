// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestUnknownExporterRejected(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "zipkin"})
	require.EqualError(t, err, `telemetry: unsupported exporter "zipkin" (want grpc or http)`)
}

func TestSampler(t *testing.T) {
	tests := map[float64]string{
		1.0: "AlwaysOnSampler",
		0.0: "AlwaysOffSampler",
		-1:  "AlwaysOffSampler",
		0.5: "TraceIDRatioBased",
	}
	for rate, want := range tests {
		got := sampler(rate).Description()
		assert.True(t, strings.HasPrefix(got, want), "sampler(%v) = %q, want prefix %q", rate, got, want)
	}
}

func TestStartSpanCarriesContext(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "umms/test", "Activate", SessionAttributes("s1", "", "")...)
	require.NotNil(t, span)
	defer span.End()
	assert.Equal(t, span, trace.SpanFromContext(ctx))
	assert.NotNil(t, Tracer("umms/test"))
}
