// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dbusapi

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuGH/umms/internal/manager"
	"github.com/ManuGH/umms/internal/session"
	"github.com/godbus/dbus/v5"
)

// DBus error names, all under ErrorPrefix.
const (
	ErrNameInvalidState      = ErrorPrefix + "InvalidStateTransition"
	ErrNameInvalidArgument   = ErrorPrefix + "InvalidArgument"
	ErrNameResourceExhausted = ErrorPrefix + "ResourceExhausted"
	ErrNameProbeFailure      = ErrorPrefix + "ProbeFailure"
	ErrNameEngineFailure     = ErrorPrefix + "EngineFailure"
	ErrNameNotFound          = ErrorPrefix + "NotFound"
	ErrNameTooManyPlayers    = ErrorPrefix + "TooManyPlayers"
	ErrNameTimeout           = ErrorPrefix + "Timeout"
)

// toDBusError maps a domain error onto a named DBus error. The body is
// the human-readable message.
func toDBusError(err error) *dbus.Error {
	return dbus.NewError(errorName(err), []interface{}{err.Error()})
}

func errorName(err error) string {
	if kind, ok := session.KindOf(err); ok {
		return ErrorPrefix + kind.String()
	}
	switch {
	case errors.Is(err, manager.ErrNotFound):
		return ErrNameNotFound
	case errors.Is(err, manager.ErrTooManyPlayers):
		return ErrNameTooManyPlayers
	case errors.Is(err, session.ErrInvalidArgument):
		return ErrNameInvalidArgument
	case errors.Is(err, session.ErrInvalidState):
		return ErrNameInvalidState
	case errors.Is(err, session.ErrResourceExhausted):
		return ErrNameResourceExhausted
	case errors.Is(err, session.ErrProbeFailure):
		return ErrNameProbeFailure
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrNameTimeout
	default:
		return ErrNameEngineFailure
	}
}

func errorSuffix(name string) string {
	return strings.TrimPrefix(name, ErrorPrefix)
}
