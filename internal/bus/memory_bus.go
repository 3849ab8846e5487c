// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/metrics"
)

// DefaultBuffer is the per-subscriber queue depth.
const DefaultBuffer = 64

// Only the first and then every dropLogEvery-th drop is logged; all are
// counted.
const dropLogEvery = 100

// MemoryBus is an in-process pub/sub. Delivery to each subscriber is
// bounded by the publish context; a subscriber that cannot keep up loses
// messages rather than stalling the publisher forever.
type MemoryBus struct {
	mu      sync.RWMutex
	topics  map[string][]*memSub
	buffer  int
	dropped atomic.Uint64
	dropLog rate.Sometimes
}

// NewMemoryBus returns a bus with the given subscriber buffer depth
// (DefaultBuffer when <= 0).
func NewMemoryBus(buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &MemoryBus{
		topics:  make(map[string][]*memSub),
		buffer:  buffer,
		dropLog: rate.Sometimes{First: 1, Every: dropLogEvery},
	}
}

// Publish delivers msg to every subscriber of topic in subscription order.
// It stops at the first subscriber that is still full when ctx ends.
func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return errors.New("bus: publish context is nil")
	}
	// Holding the read lock across sends keeps Close from closing a
	// channel under a pending send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.topics[topic] {
		select {
		case s.ch <- msg:
		case <-ctx.Done():
			b.recordDrop(topic, ctx.Err())
			return fmt.Errorf("publish %q: %w", topic, ctx.Err())
		}
	}
	return nil
}

func (b *MemoryBus) recordDrop(topic string, cause error) {
	reason := "canceled"
	if errors.Is(cause, context.DeadlineExceeded) {
		reason = "timeout"
	}
	metrics.IncBusDropReason(topic, reason)
	n := b.dropped.Add(1)
	b.dropLog.Do(func() {
		logger := log.WithComponent("bus")
		logger.Warn().
			Str("topic", topic).
			Str("reason", reason).
			Uint64("dropped", n).
			Msg("subscriber too slow, message dropped")
	})
}

// Subscribe registers a subscriber. It is closed by Close or when ctx is
// done, whichever comes first.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscriber, error) {
	if ctx == nil {
		return nil, errors.New("bus: subscribe context is nil")
	}
	s := &memSub{
		bus:   b,
		topic: topic,
		ch:    make(chan Message, b.buffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], s)
	metrics.SetBusSubscribers(topic, len(b.topics[topic]))
	b.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = s.Close()
			case <-s.done:
			}
		}()
	}
	return s, nil
}

// Subscribers returns the number of live subscribers of topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

func (b *MemoryBus) unsubscribe(s *memSub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := slices.DeleteFunc(b.topics[s.topic], func(c *memSub) bool { return c == s })
	if len(subs) == 0 {
		delete(b.topics, s.topic)
	} else {
		b.topics[s.topic] = subs
	}
	metrics.SetBusSubscribers(s.topic, len(subs))
	close(s.ch)
}

type memSub struct {
	bus   *MemoryBus
	topic string
	ch    chan Message
	done  chan struct{}
	once  sync.Once
}

func (s *memSub) C() <-chan Message { return s.ch }

func (s *memSub) Close() error {
	s.once.Do(func() {
		s.bus.unsubscribe(s)
		close(s.done)
	})
	return nil
}

var _ Bus = (*MemoryBus)(nil)
