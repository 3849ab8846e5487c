// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resource arbitrates the scarce hardware units (planes, decoders,
// clocks, tuners) shared by all playback sessions of the process.
package resource

import (
	"errors"
	"fmt"
)

// Type identifies a class of hardware unit.
type Type int

const (
	Plane Type = iota
	HwVideoDecoder
	HwClock
	Tuner
)

// Types lists every resource type in pool order.
var Types = []Type{Plane, HwVideoDecoder, HwClock, Tuner}

func (t Type) String() string {
	switch t {
	case Plane:
		return "plane"
	case HwVideoDecoder:
		return "hw_video_decoder"
	case HwClock:
		return "hw_clock"
	case Tuner:
		return "tuner"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// MarshalText renders the type name in JSON payloads.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType maps a type name back to its Type.
func ParseType(name string) (Type, error) {
	for _, t := range Types {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Hardware plane ids of the display controller.
const (
	PlaneUPPA = 0
	PlaneUPPB = 1
)

// NoPreference asks the arbiter for the first free unit.
const NoPreference = -1

// Item is one slot of a pool.
type Item struct {
	ID   int
	Used bool
}

// Request asks for one unit of a type, optionally naming a preferred id.
type Request struct {
	Type       Type
	Preference int
}

// Resource is a granted unit. The holder owns it until it is released.
type Resource struct {
	Type   Type `json:"type"`
	Handle int  `json:"handle"`
}

func (r Resource) String() string {
	return fmt.Sprintf("%s#%d", r.Type, r.Handle)
}

// Capacities maps each type to its pool size.
type Capacities map[Type]int

// DefaultCapacities returns the unit counts of the reference platform.
func DefaultCapacities() Capacities {
	return Capacities{
		Plane:          2,
		HwVideoDecoder: 2,
		HwClock:        5,
		Tuner:          1,
	}
}

var (
	// ErrResourceExhausted is returned when every unit of a type is in use.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrUnknownType is returned for a type the arbiter has no pool for.
	ErrUnknownType = errors.New("unknown resource type")
)

// ExhaustedError carries the type that ran out.
type ExhaustedError struct {
	Type Type
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrResourceExhausted, e.Type)
}

func (e *ExhaustedError) Unwrap() error { return ErrResourceExhausted }
