// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"maps"
	"slices"
)

// File renders the effective configuration in the on-disk schema, so that
// loading the result with no environment overrides reproduces c.
func (c AppConfig) File() FileConfig {
	return FileConfig{
		DataDir: c.DataDir,
		Log:     &FileLogConfig{Level: c.Log.Level, Service: c.Log.Service},
		Platform: &FilePlatformConfig{
			Variant:  c.Platform.Variant,
			Policies: maps.Clone(c.Platform.Policies),
		},
		Resources: &FileResourcesConfig{
			Capacities: maps.Clone(c.Resources.Capacities),
			PlaneIDs:   slices.Clone(c.Resources.PlaneIDs),
		},
		Probe:  &FileProbeConfig{LiveSchemes: slices.Clone(c.Probe.LiveSchemes)},
		Engine: &FileEngineConfig{Backend: c.Engine.Backend, MaxPlayers: ptr(c.Engine.MaxPlayers)},
		Resume: &FileResumeConfig{Backend: c.Resume.Backend},
		DBus:   &FileDBusConfig{Enabled: ptr(c.DBus.Enabled), Bus: c.DBus.Bus, Name: c.DBus.Name},
		API: &FileAPIConfig{
			Enabled:         ptr(c.API.Enabled),
			Listen:          c.API.Listen,
			RateLimit:       ptr(c.API.RateLimit),
			ShutdownTimeout: c.API.ShutdownTimeout.String(),
		},
		Telemetry: &FileTelemetryConfig{
			Enabled:      ptr(c.Telemetry.Enabled),
			ServiceName:  c.Telemetry.ServiceName,
			Environment:  c.Telemetry.Environment,
			ExporterType: c.Telemetry.ExporterType,
			Endpoint:     c.Telemetry.Endpoint,
			SamplingRate: ptr(c.Telemetry.SamplingRate),
		},
	}
}

func ptr[T any](v T) *T { return &v }
