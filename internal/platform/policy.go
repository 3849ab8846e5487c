// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package platform

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/probe"
	"github.com/ManuGH/umms/internal/resource"
)

var (
	// ErrUnsupportedTarget is returned for a render target the variant lacks.
	ErrUnsupportedTarget = errors.New("unsupported render target")
	// ErrInvalidVolume is returned for a volume outside 0..100.
	ErrInvalidVolume = errors.New("volume out of range")
)

// Target is a client render-target request.
type Target struct {
	Type   engine.TargetType
	Params map[string]any
}

// Target parameter keys.
const (
	ParamRectangle = "rectangle"
	ParamPlaneID   = "plane-id"
)

// AutoplugPolicy lists the video families the hardware decodes.
type AutoplugPolicy struct {
	HardwareFamilies []probe.Family
}

// Allows reports whether f is decoded in hardware.
func (p AutoplugPolicy) Allows(f probe.Family) bool {
	return slices.Contains(p.HardwareFamilies, f)
}

// Policy is the capability set a session delegates platform-specific
// work to.
type Policy interface {
	Variant() Variant
	SetTarget(eng engine.Engine, t Target) error
	SetVolume(eng engine.Engine, volume int) error
	SetMute(eng engine.Engine, mute bool) error
	RequestResources(arb *resource.Arbiter, f Facts) ([]resource.Resource, error)
	ReleaseResources(arb *resource.Arbiter, list []resource.Resource)
	AutoplugPolicy() AutoplugPolicy
}

type policy struct {
	variant     Variant
	acquisition Acquisition
	targets     []engine.TargetType
	autoplug    AutoplugPolicy
}

// New returns the policy for a variant with the given acquisition rule.
func New(v Variant, acq Acquisition) Policy {
	p := &policy{variant: v, acquisition: acq}
	switch v {
	case TV:
		p.targets = []engine.TargetType{engine.TargetXWindow, engine.TargetReserved0}
		p.autoplug.HardwareFamilies = []probe.Family{probe.FamilyH264, probe.FamilyMPEG2, probe.FamilyMPEG4, probe.FamilyVC1}
	case Satellite:
		p.targets = []engine.TargetType{engine.TargetReserved0}
		p.autoplug.HardwareFamilies = []probe.Family{probe.FamilyH264, probe.FamilyMPEG2}
	default:
		p.targets = []engine.TargetType{engine.TargetXWindow, engine.TargetDataCopy, engine.TargetSocket, engine.TargetReserved0}
		p.autoplug.HardwareFamilies = []probe.Family{probe.FamilyH264, probe.FamilyMPEG2, probe.FamilyMPEG4, probe.FamilyVC1}
	}
	return p
}

func (p *policy) Variant() Variant { return p.variant }

func (p *policy) AutoplugPolicy() AutoplugPolicy { return p.autoplug }

func (p *policy) SetTarget(eng engine.Engine, t Target) error {
	if !slices.Contains(p.targets, t.Type) {
		return fmt.Errorf("%w: %s on %s", ErrUnsupportedTarget, t.Type, p.variant)
	}
	vt := engine.VideoTarget{Type: t.Type, Plane: resource.NoPreference}
	if r, ok := t.Params[ParamRectangle]; ok {
		s, ok := r.(string)
		if !ok {
			return fmt.Errorf("target parameter %q must be a string", ParamRectangle)
		}
		vt.Rectangle = s
	}
	if raw, ok := t.Params[ParamPlaneID]; ok {
		id, err := toInt(raw)
		if err != nil {
			return fmt.Errorf("target parameter %q: %w", ParamPlaneID, err)
		}
		vt.Plane = id
	}
	return eng.SetVideoTarget(vt)
}

func (p *policy) SetVolume(eng engine.Engine, volume int) error {
	if volume < 0 || volume > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidVolume, volume)
	}
	return eng.SetVolume(volume)
}

func (p *policy) SetMute(eng engine.Engine, mute bool) error {
	return eng.SetMute(mute)
}

func (p *policy) RequestResources(arb *resource.Arbiter, f Facts) ([]resource.Resource, error) {
	return arb.RequestBatch(p.acquisition.Plan(f))
}

func (p *policy) ReleaseResources(arb *resource.Arbiter, list []resource.Resource) {
	arb.ReleaseAll(list)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
