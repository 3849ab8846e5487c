// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import "time"

// SignalKind names a client notification.
type SignalKind string

const (
	SignalPlayerStateChanged SignalKind = "PlayerStateChanged"
	SignalError              SignalKind = "Error"
	SignalBuffering          SignalKind = "Buffering"
	SignalBuffered           SignalKind = "Buffered"
	SignalEOF                SignalKind = "Eof"
	SignalSeeked             SignalKind = "Seeked"
	SignalStopped            SignalKind = "Stopped"
	SignalMetadataChanged    SignalKind = "MetadataChanged"
	SignalSuspended          SignalKind = "Suspended"
	SignalRestored           SignalKind = "Restored"
)

// Metadata is what the session knows about the current media.
type Metadata struct {
	URI    string            `json:"uri"`
	Title  string            `json:"title,omitempty"`
	Artist string            `json:"artist,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

func (m Metadata) clone() Metadata {
	out := m
	if m.Tags != nil {
		out.Tags = make(map[string]string, len(m.Tags))
		for k, v := range m.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

// Signal is one notification to clients.
type Signal struct {
	SessionID string        `json:"session_id"`
	Kind      SignalKind    `json:"kind"`
	OldState  PlayerState   `json:"old_state,omitempty"`
	NewState  PlayerState   `json:"new_state,omitempty"`
	Code      Code          `json:"code,omitempty"`
	Message   string        `json:"message,omitempty"`
	Percent   int           `json:"percent,omitempty"`
	Position  time.Duration `json:"position,omitempty"`
	Metadata  *Metadata     `json:"metadata,omitempty"`
}

// Emitter delivers signals. Called from the event loop; must not block.
type Emitter interface {
	Emit(Signal)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Signal)

// Emit implements Emitter.
func (f EmitterFunc) Emit(s Signal) { f(s) }
