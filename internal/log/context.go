// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{ field string }

var (
	requestIDKey = ctxKey{FieldRequestID}
	sessionIDKey = ctxKey{FieldSessionID}
)

// correlation lists the context keys copied onto loggers, in field order.
var correlation = []ctxKey{requestIDKey, sessionIDKey}

func withValue(ctx context.Context, key ctxKey, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, id)
}

func value(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithRequestID stores the HTTP request ID in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// ContextWithSessionID stores the playback session ID in ctx.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return withValue(ctx, sessionIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string { return value(ctx, requestIDKey) }

func SessionIDFromContext(ctx context.Context) string { return value(ctx, sessionIDKey) }

// WithComponentFromContext returns a component logger carrying the request
// and session IDs found in ctx. A logger attached with zerolog's
// WithContext takes the place of the base logger.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	parent := Base()
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			parent = *l
		}
	}
	b := parent.With().Str(FieldComponent, component)
	for _, key := range correlation {
		if id := value(ctx, key); id != "" {
			b = b.Str(key.field, id)
		}
	}
	return b.Logger()
}
