// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldPath      = "path"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldHandle    = "handle"

	// Resource fields
	FieldResourceType = "resource_type"
	FieldPreference   = "preference"
	FieldCapacity     = "capacity"

	// Media fields
	FieldURI      = "uri"
	FieldLive     = "live"
	FieldFamily   = "family"
	FieldCaps     = "caps"
	FieldPercent  = "percent"
	FieldPosition = "position"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldPending  = "pending_state"
	FieldTarget   = "target"
	FieldVariant  = "variant"
)
