// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package platform

import (
	"fmt"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/resource"
)

// ClockRule decides when an activation takes a hardware clock.
type ClockRule string

const (
	// ClockConditional takes a clock for live sources, or when there is
	// audio, or video rendered to a sink that needs one.
	ClockConditional ClockRule = "conditional"
	ClockAlways      ClockRule = "always"
	ClockNever       ClockRule = "never"
)

// Acquisition is the batch of units an activation requests.
type Acquisition struct {
	Clock         ClockRule
	VideoDecoders bool
	Tuner         bool
}

// Validate rejects unknown clock rules.
func (a Acquisition) Validate() error {
	switch a.Clock {
	case ClockConditional, ClockAlways, ClockNever:
		return nil
	default:
		return fmt.Errorf("unknown clock rule %q (supported: conditional, always, never)", a.Clock)
	}
}

// DefaultAcquisition returns the built-in rule for a variant.
func DefaultAcquisition(v Variant) Acquisition {
	switch v {
	case Satellite:
		return Acquisition{Clock: ClockAlways, VideoDecoders: true, Tuner: true}
	default:
		return Acquisition{Clock: ClockConditional, VideoDecoders: true}
	}
}

// Facts are what the probe learned plus the current render target.
type Facts struct {
	Live            bool
	HasVideo        bool
	HasAudio        bool
	HWVideoDecoders int
	Target          engine.TargetType
}

// SinkNeedsClock reports whether the video sink for t renders against a
// hardware clock.
func SinkNeedsClock(t engine.TargetType) bool {
	return t == engine.TargetXWindow || t == engine.TargetReserved0
}

// Plan returns the requests of one activation. Planes are never part of
// it; they are requested when the sink is prepared.
func (a Acquisition) Plan(f Facts) []resource.Request {
	var reqs []resource.Request

	needClock := false
	switch a.Clock {
	case ClockAlways:
		needClock = true
	case ClockConditional:
		if f.Live {
			needClock = true
		} else {
			needClock = (f.HasVideo && SinkNeedsClock(f.Target)) || f.HasAudio
		}
	}
	if needClock {
		reqs = append(reqs, resource.Request{Type: resource.HwClock, Preference: resource.NoPreference})
	}

	if a.VideoDecoders {
		for i := 0; i < f.HWVideoDecoders; i++ {
			reqs = append(reqs, resource.Request{Type: resource.HwVideoDecoder, Preference: resource.NoPreference})
		}
	}

	if a.Tuner {
		reqs = append(reqs, resource.Request{Type: resource.Tuner, Preference: resource.NoPreference})
	}
	return reqs
}
