// SPDX-License-Identifier: MIT
package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func asMap(attrs ...attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func TestHTTPAttributes(t *testing.T) {
	assert.Equal(t, map[string]any{
		HTTPMethodKey:     "GET",
		HTTPRouteKey:      "/api/v1/resources",
		HTTPStatusCodeKey: int64(200),
	}, asMap(HTTPAttributes("GET", "/api/v1/resources", 200)...))
}

func TestSessionAttributesOmitEmpty(t *testing.T) {
	assert.Equal(t, map[string]any{
		SessionIDKey:     "s1",
		SessionURIKey:    "file:///m.ts",
		SessionTargetKey: "playing",
	}, asMap(SessionAttributes("s1", "file:///m.ts", "playing")...))

	assert.Equal(t, map[string]any{SessionIDKey: "s1"}, asMap(SessionAttributes("s1", "", "")...))
	assert.Empty(t, SessionAttributes("", "", ""))
}

func TestSmallAttributeHelpers(t *testing.T) {
	assert.Equal(t, map[string]any{ResourceCountKey: int64(3)}, asMap(ResourceCountAttribute(3)))
	assert.Equal(t, map[string]any{
		DBusMemberKey: "Play",
		DBusPathKey:   "/com/meego/UMMS/MediaPlayer/0",
	}, asMap(DBusAttributes("Play", "/com/meego/UMMS/MediaPlayer/0")...))
	assert.Equal(t, map[string]any{ErrorTypeKey: "ResourceExhausted"}, asMap(ErrorAttributes("ResourceExhausted")...))
	assert.Equal(t, map[string]any{
		PlatformVariantKey: "tv",
		EngineBackendKey:   "stub",
	}, asMap(PlatformAttributes("tv", "stub")...))
}
