// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"sort"

	"github.com/ManuGH/umms/internal/metrics"
	"github.com/ManuGH/umms/internal/platform"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/ManuGH/umms/internal/validate"
)

// Validate checks a fully merged configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("log.level", cfg.Log.Level)

	if _, err := platform.ParseVariant(cfg.Platform.Variant); err != nil {
		v.AddError("platform.variant", err.Error(), cfg.Platform.Variant)
	}
	names := make([]string, 0, len(cfg.Platform.Policies))
	for name := range cfg.Platform.Policies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field := "platform.policies." + name
		if _, err := platform.ParseVariant(name); err != nil {
			v.AddError(field, err.Error(), name)
			continue
		}
		if clock := cfg.Platform.Policies[name].Clock; clock != "" {
			if err := (platform.Acquisition{Clock: platform.ClockRule(clock)}).Validate(); err != nil {
				v.AddError(field+".clock", err.Error(), clock)
			}
		}
	}

	validateResources(v, cfg.Resources)

	for i, s := range cfg.Probe.LiveSchemes {
		v.Scheme(fmt.Sprintf("probe.live_schemes[%d]", i), s)
	}

	v.NotEmpty("engine.backend", cfg.Engine.Backend)
	v.NonNegative("engine.max_players", cfg.Engine.MaxPlayers)

	v.OneOf("resume.backend", cfg.Resume.Backend, []string{"sqlite", "memory"})
	if cfg.Resume.Backend == "sqlite" {
		v.Directory("data_dir", cfg.DataDir, true)
	}

	if cfg.DBus.Enabled {
		v.OneOf("dbus.bus", cfg.DBus.Bus, []string{"system", "session"})
		v.NotEmpty("dbus.name", cfg.DBus.Name)
	}

	if cfg.API.Enabled {
		v.ListenAddr("api.listen", cfg.API.Listen)
		v.NonNegative("api.rate_limit", cfg.API.RateLimit)
		if cfg.API.ShutdownTimeout <= 0 {
			v.AddError("api.shutdown_timeout", "must be positive", cfg.API.ShutdownTimeout)
		}
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.ExporterType, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if r := cfg.Telemetry.SamplingRate; r < 0 || r > 1 {
			v.AddError("telemetry.sampling_rate", "must be between 0.0 and 1.0", r)
		}
	}

	if !v.IsValid() {
		for range v.Errors() {
			metrics.IncConfigValidationError()
		}
	}
	return v.Err()
}

func validateResources(v *validate.Validator, rc ResourcesConfig) {
	keys := make([]string, 0, len(rc.Capacities))
	for k := range rc.Capacities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field := "resources.capacities." + k
		if _, err := resource.ParseType(k); err != nil {
			v.AddError(field, err.Error(), k)
			continue
		}
		v.NonNegative(field, rc.Capacities[k])
	}

	if len(rc.PlaneIDs) == 0 {
		return
	}
	v.Unique("resources.plane_ids", rc.PlaneIDs)
	for i, id := range rc.PlaneIDs {
		v.NonNegative(fmt.Sprintf("resources.plane_ids[%d]", i), id)
	}
	if n, ok := rc.Capacities[resource.Plane.String()]; ok && n != len(rc.PlaneIDs) {
		v.AddError("resources.plane_ids",
			fmt.Sprintf("%d plane ids given but plane capacity is %d", len(rc.PlaneIDs), n),
			rc.PlaneIDs)
	}
}
