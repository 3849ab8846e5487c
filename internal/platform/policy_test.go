// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package platform

import (
	"testing"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/engine/stub"
	"github.com/ManuGH/umms/internal/probe"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func countTypes(reqs []resource.Request) map[resource.Type]int {
	out := map[resource.Type]int{}
	for _, r := range reqs {
		out[r.Type]++
	}
	return out
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		acq  Acquisition
		f    Facts
		want map[resource.Type]int
	}{
		{
			name: "non-live video to plane with audio",
			acq:  DefaultAcquisition(Generic),
			f:    Facts{HasVideo: true, HasAudio: true, HWVideoDecoders: 1, Target: engine.TargetReserved0},
			want: map[resource.Type]int{resource.HwClock: 1, resource.HwVideoDecoder: 1},
		},
		{
			name: "non-live video to data copy without audio",
			acq:  DefaultAcquisition(Generic),
			f:    Facts{HasVideo: true, HWVideoDecoders: 1, Target: engine.TargetDataCopy},
			want: map[resource.Type]int{resource.HwVideoDecoder: 1},
		},
		{
			name: "audio only",
			acq:  DefaultAcquisition(TV),
			f:    Facts{HasAudio: true, Target: engine.TargetDataCopy},
			want: map[resource.Type]int{resource.HwClock: 1},
		},
		{
			name: "live takes one clock regardless of audio",
			acq:  DefaultAcquisition(Generic),
			f:    Facts{Live: true, HasVideo: true, HWVideoDecoders: 2, Target: engine.TargetSocket},
			want: map[resource.Type]int{resource.HwClock: 1, resource.HwVideoDecoder: 2},
		},
		{
			name: "satellite adds tuner",
			acq:  DefaultAcquisition(Satellite),
			f:    Facts{Live: true, HasVideo: true, HasAudio: true, HWVideoDecoders: 1, Target: engine.TargetReserved0},
			want: map[resource.Type]int{resource.HwClock: 1, resource.HwVideoDecoder: 1, resource.Tuner: 1},
		},
		{
			name: "clock never",
			acq:  Acquisition{Clock: ClockNever},
			f:    Facts{HasAudio: true, HasVideo: true, HWVideoDecoders: 1},
			want: map[resource.Type]int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := countTypes(tt.acq.Plan(tt.f))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("plan mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanNeverIncludesPlane(t *testing.T) {
	for _, v := range Variants {
		reqs := DefaultAcquisition(v).Plan(Facts{HasVideo: true, HasAudio: true, HWVideoDecoders: 2, Target: engine.TargetReserved0})
		require.Zero(t, countTypes(reqs)[resource.Plane], v.String())
	}
}

func TestAcquisitionValidate(t *testing.T) {
	require.NoError(t, DefaultAcquisition(Generic).Validate())
	require.Error(t, Acquisition{Clock: "sometimes"}.Validate())
}

func TestParseVariant(t *testing.T) {
	for _, v := range Variants {
		got, err := ParseVariant(v.String())
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
	got, err := ParseVariant("DVB")
	require.NoError(t, err)
	require.Equal(t, Satellite, got)

	_, err = ParseVariant("handheld")
	require.Error(t, err)
}

func TestPolicy_SetTarget(t *testing.T) {
	f := stub.NewFactory()
	eng, err := f.NewEngine(engine.Hooks{})
	require.NoError(t, err)

	p := New(Generic, DefaultAcquisition(Generic))
	require.NoError(t, p.SetTarget(eng, Target{
		Type:   engine.TargetReserved0,
		Params: map[string]any{ParamRectangle: "0,0,1280,720", ParamPlaneID: int32(1)},
	}))
	require.Equal(t, engine.VideoTarget{Type: engine.TargetReserved0, Rectangle: "0,0,1280,720", Plane: 1}, f.LastEngine().VideoTarget())

	sat := New(Satellite, DefaultAcquisition(Satellite))
	require.ErrorIs(t, sat.SetTarget(eng, Target{Type: engine.TargetXWindow}), ErrUnsupportedTarget)

	require.Error(t, p.SetTarget(eng, Target{Type: engine.TargetReserved0, Params: map[string]any{ParamPlaneID: []int{1}}}))
}

func TestPolicy_Volume(t *testing.T) {
	f := stub.NewFactory()
	eng, err := f.NewEngine(engine.Hooks{})
	require.NoError(t, err)

	p := New(TV, DefaultAcquisition(TV))
	require.NoError(t, p.SetVolume(eng, 80))
	v, _ := eng.Volume()
	require.Equal(t, 80, v)
	require.ErrorIs(t, p.SetVolume(eng, 101), ErrInvalidVolume)

	require.NoError(t, p.SetMute(eng, true))
	m, _ := eng.Mute()
	require.True(t, m)
}

func TestPolicy_RequestResourcesIsAllOrNothing(t *testing.T) {
	arb := resource.NewArbiter(resource.Capacities{resource.HwClock: 5, resource.HwVideoDecoder: 1})
	p := New(Generic, DefaultAcquisition(Generic))

	_, err := p.RequestResources(arb, Facts{HasVideo: true, HWVideoDecoders: 2, Target: engine.TargetReserved0})
	require.ErrorIs(t, err, resource.ErrResourceExhausted)
	require.Equal(t, 5, arb.Available(resource.HwClock))
	require.Equal(t, 1, arb.Available(resource.HwVideoDecoder))

	got, err := p.RequestResources(arb, Facts{HasVideo: true, HWVideoDecoders: 1, Target: engine.TargetReserved0})
	require.NoError(t, err)
	require.Len(t, got, 2)

	p.ReleaseResources(arb, got)
	require.Equal(t, 5, arb.Available(resource.HwClock))
}

func TestAutoplugPolicy(t *testing.T) {
	require.True(t, New(Generic, DefaultAcquisition(Generic)).AutoplugPolicy().Allows(probe.FamilyVC1))
	require.False(t, New(Satellite, DefaultAcquisition(Satellite)).AutoplugPolicy().Allows(probe.FamilyVC1))
}
