// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

// Notification is an asynchronous engine event.
type Notification interface {
	notification()
}

// ErrorDomain tells where an engine error originated.
type ErrorDomain string

const (
	DomainEngine   ErrorDomain = "engine"
	DomainResource ErrorDomain = "resource"
	DomainStream   ErrorDomain = "stream"
)

// StateChanged reports a completed pipeline state change.
type StateChanged struct {
	Old State
	New State
}

// Error reports a fatal pipeline error.
type Error struct {
	Domain  ErrorDomain
	Message string
}

// EOS reports the end of the stream.
type EOS struct{}

// Buffering reports network buffer fill in percent.
type Buffering struct {
	Percent int
}

// Tag reports stream metadata.
type Tag struct {
	Title  string
	Artist string
	Tags   map[string]string
}

func (StateChanged) notification() {}
func (Error) notification()        {}
func (EOS) notification()          {}
func (Buffering) notification()    {}
func (Tag) notification()          {}
