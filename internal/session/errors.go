// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"errors"
	"fmt"

	"github.com/ManuGH/umms/internal/probe"
	"github.com/ManuGH/umms/internal/resource"
)

var (
	ErrInvalidState    = errors.New("invalid state transition")
	ErrNotLoaded       = fmt.Errorf("%w: no uri loaded", ErrInvalidState)
	ErrClosed          = fmt.Errorf("%w: session closed", ErrInvalidState)
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEngineFailure   = errors.New("engine failure")

	ErrProbeFailure      = probe.ErrProbeFailure
	ErrResourceExhausted = resource.ErrResourceExhausted
)

// Kind classifies session errors.
type Kind int

const (
	KindInvalidState Kind = iota
	KindProbeFailure
	KindResourceExhausted
	KindEngineFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidState:
		return "InvalidStateTransition"
	case KindProbeFailure:
		return "ProbeFailure"
	case KindResourceExhausted:
		return "ResourceExhausted"
	case KindEngineFailure:
		return "EngineFailure"
	default:
		return "Unknown"
	}
}

// Code is the numeric error code reported to clients.
type Code int

const (
	CodeEngineNotLoaded    Code = 0
	CodeEngineInvalidState Code = 1
	CodeEngineFailed       Code = 2
	CodeResourceNoResource Code = 20
	CodeResourceFailed     Code = 21
)

// Error is a classified session error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Code maps the error onto a client code.
func (e *Error) Code() Code {
	switch e.Kind {
	case KindInvalidState:
		if errors.Is(e.Err, ErrNotLoaded) {
			return CodeEngineNotLoaded
		}
		return CodeEngineInvalidState
	case KindResourceExhausted:
		if errors.Is(e.Err, resource.ErrResourceExhausted) {
			return CodeResourceNoResource
		}
		return CodeResourceFailed
	default:
		return CodeEngineFailed
	}
}

// KindOf extracts the kind of a session error.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// CodeOf maps any error onto a client code.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code()
	}
	switch {
	case errors.Is(err, ErrNotLoaded):
		return CodeEngineNotLoaded
	case errors.Is(err, ErrInvalidState):
		return CodeEngineInvalidState
	case errors.Is(err, resource.ErrResourceExhausted):
		return CodeResourceNoResource
	default:
		return CodeEngineFailed
	}
}
