// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextIDs(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	for _, ctx := range []context.Context{nil, context.Background()} {
		assert.Equal(t, "req-1", RequestIDFromContext(ContextWithRequestID(ctx, "req-1")))
		assert.Equal(t, "s-1", SessionIDFromContext(ContextWithSessionID(ctx, "s-1")))
		assert.Empty(t, SessionIDFromContext(ctx))
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestWithComponentFromContextAddsCorrelation(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	ctx := ContextWithSessionID(ContextWithRequestID(context.Background(), "req-1"), "s-1")
	l := WithComponentFromContext(ctx, "dbus")
	l.Info().Msg("call")

	entry := decode(t, &buf)
	assert.Equal(t, "dbus", entry[FieldComponent])
	assert.Equal(t, "req-1", entry[FieldRequestID])
	assert.Equal(t, "s-1", entry[FieldSessionID])
}

func TestWithComponentFromContextPrefersAttachedLogger(t *testing.T) {
	var buf bytes.Buffer
	attached := zerolog.New(&buf).With().Str("origin", "attached").Logger()
	ctx := attached.WithContext(context.Background())

	l := WithComponentFromContext(ctx, "api")
	l.Info().Msg("plain")

	entry := decode(t, &buf)
	assert.Equal(t, "attached", entry["origin"])
	assert.NotContains(t, entry, FieldSessionID)
}
