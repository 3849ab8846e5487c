// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConfigureAttachesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "umms-test", Version: "v0.0.1"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("arbiter")
	l.Info().Str(FieldEvent, "resource.granted").Msg("granted")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "umms-test", entry["service"])
	require.Equal(t, "v0.0.1", entry["version"])
	require.Equal(t, "arbiter", entry[FieldComponent])
	require.Equal(t, "resource.granted", entry[FieldEvent])
}

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	require.NoError(t, SetLevel("warn"))
	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	require.Error(t, SetLevel("loud"))
}

func TestConfigureFallsBackToEnvironment(t *testing.T) {
	t.Setenv("UMMS_LOG_SERVICE", "ummsd-env")
	t.Setenv("UMMS_LOG_LEVEL", "warn")
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{Level: "info", Service: "ummsd"}) })

	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	l := WithComponent("config")
	l.Warn().Msg("env")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "ummsd-env", entry["service"])
}
