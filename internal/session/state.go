// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"fmt"
	"time"

	"github.com/ManuGH/umms/internal/engine"
)

// PlayerState is the client-visible state of a session. StateNull doubles
// as "no pending state".
type PlayerState int

const (
	StateNull PlayerState = iota
	StateStopped
	StatePaused
	StatePlaying
)

func (s PlayerState) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateStopped:
		return "stopped"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON payloads.
func (s PlayerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *PlayerState) UnmarshalText(b []byte) error {
	for _, st := range []PlayerState{StateNull, StateStopped, StatePaused, StatePlaying} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown player state %q", b)
}

// PendingActivation is an activation parked until the probe completes.
type PendingActivation struct {
	Target    PlayerState
	Requested time.Time
}

func toEngineState(s PlayerState) engine.State {
	switch s {
	case StatePlaying:
		return engine.StatePlaying
	case StatePaused:
		return engine.StatePaused
	default:
		return engine.StateNull
	}
}

// fromEngineState maps an engine transition onto a player state. ok is
// false when the transition does not change the player state.
func fromEngineState(change engine.StateChanged) (PlayerState, bool) {
	switch change.New {
	case engine.StatePlaying:
		return StatePlaying, true
	case engine.StatePaused:
		return StatePaused, true
	}
	if change.New < change.Old {
		return StateStopped, true
	}
	return StateNull, false
}
