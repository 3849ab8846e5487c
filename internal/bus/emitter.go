// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"time"

	"github.com/ManuGH/umms/internal/session"
)

// DefaultPublishTimeout bounds how long a signal may wait on a slow
// subscriber.
const DefaultPublishTimeout = 50 * time.Millisecond

// Emitter publishes session signals on TopicSignals.
type Emitter struct {
	Bus     Bus
	Timeout time.Duration
}

// NewEmitter returns an Emitter publishing to b.
func NewEmitter(b Bus, timeout time.Duration) *Emitter {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Emitter{Bus: b, Timeout: timeout}
}

// Emit implements session.Emitter. Drops are counted by the bus.
func (e *Emitter) Emit(sig session.Signal) {
	ctx, cancel := context.WithTimeout(context.Background(), e.Timeout)
	defer cancel()
	_ = e.Bus.Publish(ctx, TopicSignals, sig)
}

var _ session.Emitter = (*Emitter)(nil)
