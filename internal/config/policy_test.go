// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/ManuGH/umms/internal/platform"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/stretchr/testify/require"
)

func TestAcquisition_DefaultsPerVariant(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, platform.DefaultAcquisition(platform.Generic), cfg.Acquisition(platform.Generic))
	require.Equal(t, platform.DefaultAcquisition(platform.Satellite), cfg.Acquisition(platform.Satellite))
}

func TestAcquisition_OverridesApply(t *testing.T) {
	off := false
	cfg := Defaults()
	cfg.Platform.Policies = map[string]AcquisitionConfig{
		"DVB": {Clock: "never", Tuner: &off},
		"tv":  {VideoDecoders: &off},
	}

	sat := cfg.Acquisition(platform.Satellite)
	require.Equal(t, platform.ClockNever, sat.Clock)
	require.False(t, sat.Tuner)
	require.True(t, sat.VideoDecoders)

	tv := cfg.Acquisition(platform.TV)
	require.Equal(t, platform.ClockConditional, tv.Clock)
	require.False(t, tv.VideoDecoders)
}

func TestPolicy(t *testing.T) {
	cfg := Defaults()
	cfg.Platform.Variant = "satellite"
	p, err := cfg.Policy()
	require.NoError(t, err)
	require.Equal(t, platform.Satellite, p.Variant())

	cfg.Platform.Variant = "phone"
	_, err = cfg.Policy()
	require.Error(t, err)

	cfg.Platform.Variant = "tv"
	cfg.Platform.Policies = map[string]AcquisitionConfig{"tv": {Clock: "sometimes"}}
	_, err = cfg.Policy()
	require.ErrorContains(t, err, "platform.policies.tv")
}

func TestCapacitiesAndArbiterOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Resources.Capacities["hw_clock"] = 1
	cfg.Resources.PlaneIDs = []int{4, 7}
	cfg.Resources.Capacities["plane"] = 2

	caps := cfg.Capacities()
	require.Equal(t, 1, caps[resource.HwClock])
	require.Equal(t, 1, caps[resource.Tuner])

	arb := resource.NewArbiter(caps, cfg.ArbiterOptions()...)
	r, err := arb.Request(resource.Request{Type: resource.Plane, Preference: 7})
	require.NoError(t, err)
	require.Equal(t, 7, r.Handle)

	_, err = arb.Request(resource.Request{Type: resource.HwClock, Preference: resource.NoPreference})
	require.NoError(t, err)
	_, err = arb.Request(resource.Request{Type: resource.HwClock, Preference: resource.NoPreference})
	require.ErrorIs(t, err, resource.ErrResourceExhausted)

	cfg.Resources.PlaneIDs = nil
	require.Empty(t, cfg.ArbiterOptions())
}
