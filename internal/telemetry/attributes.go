// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for ummsd.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the daemon.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Session attributes
	SessionIDKey     = "session.id"
	SessionURIKey    = "session.uri"
	SessionTargetKey = "session.target_state"

	// Resource attributes
	ResourceTypeKey  = "resource.type"
	ResourceCountKey = "resource.count"

	// DBus attributes
	DBusMemberKey = "dbus.member"
	DBusPathKey   = "dbus.path"

	// Error attributes
	ErrorTypeKey = "error.type"

	// Daemon resource attributes
	PlatformVariantKey = "umms.platform.variant"
	EngineBackendKey   = "umms.engine.backend"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes creates session span attributes. Empty values are
// omitted.
func SessionAttributes(id, uri, target string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if id != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, id))
	}
	if uri != "" {
		attrs = append(attrs, attribute.String(SessionURIKey, uri))
	}
	if target != "" {
		attrs = append(attrs, attribute.String(SessionTargetKey, target))
	}
	return attrs
}

// ResourceCountAttribute records how many units a batch acquired.
func ResourceCountAttribute(n int) attribute.KeyValue {
	return attribute.Int(ResourceCountKey, n)
}

// DBusAttributes creates attributes for an exported method call.
func DBusAttributes(member, path string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DBusMemberKey, member),
		attribute.String(DBusPathKey, path),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ErrorTypeKey, errorType),
	}
}

// PlatformAttributes describe the daemon instance on its trace resource.
func PlatformAttributes(variant, backend string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PlatformVariantKey, variant),
		attribute.String(EngineBackendKey, backend),
	}
}
