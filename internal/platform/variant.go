// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package platform holds the per-hardware-variant behaviour of a player:
// which render targets exist, which units an activation needs, and which
// codecs the hardware decodes.
package platform

import (
	"fmt"
	"strings"
)

// Variant identifies a hardware platform flavour.
type Variant int

const (
	Generic Variant = iota
	TV
	Satellite
)

// Variants lists every variant.
var Variants = []Variant{Generic, TV, Satellite}

func (v Variant) String() string {
	switch v {
	case Generic:
		return "generic"
	case TV:
		return "tv"
	case Satellite:
		return "satellite"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant accepts the names produced by String, case-insensitively.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "generic":
		return Generic, nil
	case "tv":
		return TV, nil
	case "satellite", "dvb":
		return Satellite, nil
	default:
		return Generic, fmt.Errorf("unknown platform variant %q (supported: generic, tv, satellite)", s)
	}
}
