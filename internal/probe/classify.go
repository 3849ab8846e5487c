// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package probe

import (
	"fmt"
	"strings"
)

// Caps is the negotiated format of one elementary stream: a media type
// name such as "video/x-h264" plus its structure fields.
type Caps struct {
	Name   string
	Fields map[string]any
}

func (c Caps) String() string {
	if len(c.Fields) == 0 {
		return c.Name
	}
	return fmt.Sprintf("%s %v", c.Name, c.Fields)
}

// Kind is the class a stream falls into for resource planning.
type Kind int

const (
	KindOther Kind = iota
	KindHardwareVideo
	KindSoftwareVideo
	KindAudio
	KindSubtitle
)

func (k Kind) String() string {
	switch k {
	case KindHardwareVideo:
		return "hw_video"
	case KindSoftwareVideo:
		return "sw_video"
	case KindAudio:
		return "audio"
	case KindSubtitle:
		return "subtitle"
	default:
		return "other"
	}
}

// Family is a hardware-decodable video format family.
type Family int

const (
	FamilyNone Family = iota
	FamilyH264
	FamilyMPEG2
	FamilyMPEG4
	FamilyVC1
)

func (f Family) String() string {
	switch f {
	case FamilyH264:
		return "h264"
	case FamilyMPEG2:
		return "mpeg2"
	case FamilyMPEG4:
		return "mpeg4"
	case FamilyVC1:
		return "vc1"
	default:
		return "none"
	}
}

// Maximum coded size the hardware H.264 decoder accepts.
const (
	maxH264Width  = 1920
	maxH264Height = 1088
	minH264Dim    = 16
)

// Classify maps stream caps onto a kind and, for hardware video, its family.
func Classify(c Caps) (Kind, Family) {
	name := strings.ToLower(c.Name)
	switch {
	case strings.HasPrefix(name, "video/"):
		if f := hardwareFamily(name, c.Fields); f != FamilyNone {
			return KindHardwareVideo, f
		}
		return KindSoftwareVideo, FamilyNone
	case strings.HasPrefix(name, "audio/"):
		return KindAudio, FamilyNone
	case strings.HasPrefix(name, "text/"), strings.HasPrefix(name, "subpicture/"),
		name == "application/x-subtitle", name == "application/x-ssa", name == "application/x-ass":
		return KindSubtitle, FamilyNone
	default:
		return KindOther, FamilyNone
	}
}

func hardwareFamily(name string, fields map[string]any) Family {
	switch name {
	case "video/x-h264", "video/h264":
		if w, ok := intField(fields, "width"); ok && (w < minH264Dim || w > maxH264Width) {
			return FamilyNone
		}
		if h, ok := intField(fields, "height"); ok && (h < minH264Dim || h > maxH264Height) {
			return FamilyNone
		}
		return FamilyH264
	case "video/mpeg":
		if sys, ok := boolField(fields, "systemstream"); ok && sys {
			return FamilyNone
		}
		v, ok := intField(fields, "mpegversion")
		if !ok {
			return FamilyNone
		}
		switch v {
		case 1, 2:
			return FamilyMPEG2
		case 4:
			return FamilyMPEG4
		}
	case "video/x-xvid":
		return FamilyMPEG4
	case "video/x-divx":
		if v, ok := intField(fields, "divxversion"); ok && v >= 4 && v <= 5 {
			return FamilyMPEG4
		}
	case "video/x-wmv":
		if v, ok := intField(fields, "wmvversion"); ok && v == 3 {
			return FamilyVC1
		}
	}
	return FamilyNone
}

func intField(fields map[string]any, key string) (int, bool) {
	v, ok := fields[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func boolField(fields map[string]any, key string) (bool, bool) {
	v, ok := fields[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
