// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/engine/stub"
	"github.com/ManuGH/umms/internal/eventloop"
	"github.com/ManuGH/umms/internal/platform"
	"github.com/ManuGH/umms/internal/probe"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/ManuGH/umms/internal/resume"
	"github.com/stretchr/testify/require"
)

var (
	capsH264 = probe.Caps{Name: "video/x-h264", Fields: map[string]any{"width": 1280, "height": 720}}
	capsAAC  = probe.Caps{Name: "audio/mpeg", Fields: map[string]any{"mpegversion": 4}}
)

type recorder struct {
	mu      sync.Mutex
	signals []Signal
}

func (r *recorder) Emit(s Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, s)
}

func (r *recorder) all() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Signal(nil), r.signals...)
}

func (r *recorder) count(k SignalKind) int {
	n := 0
	for _, s := range r.all() {
		if s.Kind == k {
			n++
		}
	}
	return n
}

func (r *recorder) last(k SignalKind) (Signal, bool) {
	sigs := r.all()
	for i := len(sigs) - 1; i >= 0; i-- {
		if sigs[i].Kind == k {
			return sigs[i], true
		}
	}
	return Signal{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = nil
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	arb     *resource.Arbiter
	factory *stub.Factory
	queue   *eventloop.Queue
	rec     *recorder
	policy  platform.Policy
	resume  *resume.MemoryStore
	n       int
}

func newHarness(t *testing.T, v platform.Variant) *harness {
	t.Helper()
	return &harness{
		t:       t,
		ctx:     context.Background(),
		arb:     resource.NewArbiter(resource.DefaultCapacities()),
		factory: stub.NewFactory(),
		queue:   &eventloop.Queue{},
		rec:     &recorder{},
		policy:  platform.New(v, platform.DefaultAcquisition(v)),
		resume:  resume.NewMemoryStore(),
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Arbiter:    h.arb,
		Policy:     h.policy,
		Engines:    h.factory,
		Dispatcher: h.queue,
		Emitter:    h.rec,
		Resume:     h.resume,
	}
}

func (h *harness) newSession() (*Session, *stub.Engine) {
	h.t.Helper()
	h.n++
	s, err := New(fmt.Sprintf("player-%d", h.n), h.deps())
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, h.factory.LastEngine()
}

// discover completes the most recent probe with caps and runs the loop.
func (h *harness) discover(caps ...probe.Caps) {
	h.t.Helper()
	g := h.factory.LastGraph()
	require.NotNil(h.t, g)
	g.Discover(caps...)
	h.queue.Flush()
}

// playing loads uri, plays it and completes the probe with caps.
func (h *harness) playing(s *Session, uri string, caps ...probe.Caps) {
	h.t.Helper()
	require.NoError(h.t, s.SetURI(h.ctx, uri))
	require.NoError(h.t, s.Play(h.ctx))
	h.discover(caps...)
	require.Equal(h.t, StatePlaying, s.State())
}

func (h *harness) inUse(t resource.Type) int {
	for _, p := range h.arb.Snapshot() {
		if p.Type == t.String() {
			return p.InUse
		}
	}
	return -1
}

func xwindow() platform.Target {
	return platform.Target{Type: engine.TargetXWindow}
}
