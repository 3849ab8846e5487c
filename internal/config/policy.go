// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"

	"github.com/ManuGH/umms/internal/platform"
	"github.com/ManuGH/umms/internal/resource"
)

// Acquisition resolves the acquisition rule for variant v: the built-in
// rule with the configured overrides applied.
func (c AppConfig) Acquisition(v platform.Variant) platform.Acquisition {
	acq := platform.DefaultAcquisition(v)
	for name, o := range c.Platform.Policies {
		pv, err := platform.ParseVariant(name)
		if err != nil || pv != v {
			continue
		}
		if o.Clock != "" {
			acq.Clock = platform.ClockRule(o.Clock)
		}
		setPtr(&acq.VideoDecoders, o.VideoDecoders)
		setPtr(&acq.Tuner, o.Tuner)
	}
	return acq
}

// Policy builds the platform policy for the configured variant.
func (c AppConfig) Policy() (platform.Policy, error) {
	v, err := platform.ParseVariant(c.Platform.Variant)
	if err != nil {
		return nil, err
	}
	acq := c.Acquisition(v)
	if err := acq.Validate(); err != nil {
		return nil, fmt.Errorf("platform.policies.%s: %w", v, err)
	}
	return platform.New(v, acq), nil
}

// Capacities converts the configured pool sizes. Unknown names are
// rejected by Validate and skipped here.
func (c AppConfig) Capacities() resource.Capacities {
	caps := make(resource.Capacities, len(c.Resources.Capacities))
	for name, n := range c.Resources.Capacities {
		t, err := resource.ParseType(name)
		if err != nil {
			continue
		}
		caps[t] = n
	}
	return caps
}

// ArbiterOptions returns the arbiter options implied by the config.
func (c AppConfig) ArbiterOptions() []resource.Option {
	if len(c.Resources.PlaneIDs) == 0 {
		return nil
	}
	return []resource.Option{resource.WithPlaneIDs(c.Resources.PlaneIDs...)}
}
