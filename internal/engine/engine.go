// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package engine defines the contract between playback sessions and the
// external pipeline engine that does the actual decoding and rendering.
package engine

import (
	"errors"
	"time"

	"github.com/ManuGH/umms/internal/probe"
)

// State is the engine's own pipeline state. Values are ordered so that a
// lower value is a "downward" transition.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// TargetType selects where decoded video goes.
type TargetType int

const (
	TargetXWindow TargetType = iota
	TargetDataCopy
	TargetSocket
	TargetReserved0 // hardware plane
	TargetReserved1
	TargetReserved2
	TargetReserved3
)

func (t TargetType) String() string {
	switch t {
	case TargetXWindow:
		return "xwindow"
	case TargetDataCopy:
		return "data_copy"
	case TargetSocket:
		return "socket"
	case TargetReserved0:
		return "reserved0"
	case TargetReserved1:
		return "reserved1"
	case TargetReserved2:
		return "reserved2"
	case TargetReserved3:
		return "reserved3"
	default:
		return "unknown"
	}
}

// VideoTarget configures the video sink.
type VideoTarget struct {
	Type      TargetType
	Rectangle string
	// Plane is the preferred hardware plane for TargetReserved0, or -1.
	Plane int
}

// ErrUnsupported is returned by backends for operations they cannot serve.
var ErrUnsupported = errors.New("engine: unsupported operation")

// Engine is one playback pipeline. Methods are called from the session's
// event loop; notifications flow back through Hooks.Notify.
type Engine interface {
	SetURI(uri string) error
	// SetState requests an asynchronous state change. Completion is
	// reported with a StateChanged notification.
	SetState(target State) error
	State() State
	Seek(pos time.Duration, rate float64) error
	QueryPosition() (time.Duration, error)
	QueryDuration() (time.Duration, error)
	QuerySeekable() (bool, error)
	QueryBufferingPercent() (int, error)
	SetVolume(volume int) error
	Volume() (int, error)
	SetMute(mute bool) error
	Mute() (bool, error)
	SetVideoTarget(t VideoTarget) error
	Close() error
}

// Hooks connect an engine to its session.
type Hooks struct {
	// Notify receives asynchronous engine events. Called from engine
	// threads; implementations must hand off to the event loop.
	Notify func(Notification)
	// PreparePlane is invoked synchronously from the engine's streaming
	// thread when the video sink asks for a hardware plane. It returns the
	// plane actually granted.
	PreparePlane func(preferred int) (int, error)
}

// Factory builds engines and probe graphs for one backend.
type Factory interface {
	probe.GraphFactory
	NewEngine(h Hooks) (Engine, error)
}
