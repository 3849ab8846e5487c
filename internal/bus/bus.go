// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus fans session signals out to the transports that deliver them
// to clients (DBus, WebSocket).
package bus

import "context"

// TopicSignals carries every session.Signal.
const TopicSignals = "signals"

// Message is an opaque payload.
type Message interface{}

// Subscriber receives messages for one topic until closed.
type Subscriber interface {
	C() <-chan Message
	Close() error
}

// Bus is a topic-based publish/subscribe channel.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}
