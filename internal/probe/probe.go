// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package probe discovers the elementary streams of a URI before any
// hardware is committed to it.
package probe

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/metrics"
	"github.com/rs/zerolog"
)

// ErrProbeFailure is reported when the probe graph cannot be built or
// errors before discovering all streams.
var ErrProbeFailure = errors.New("probe failure")

// Result is the frozen outcome of a probe.
type Result struct {
	HasVideo        bool
	HasAudio        bool
	HasSubtitle     bool
	HWVideoDecoders int
	Families        []Family
	Live            bool
}

// Listener receives the events of a probe graph. Calls may come from
// engine streaming threads.
type Listener interface {
	// AutoplugContinue is asked once per discovered stream. Returning false
	// stops the decode graph from plugging further elements for it.
	AutoplugContinue(caps Caps) bool
	// NoMorePads signals that every stream has been discovered.
	NoMorePads()
	// Error reports a fatal graph error.
	Error(err error)
}

// Graph is a disposable decode graph built only to discover streams.
type Graph interface {
	Close() error
}

// GraphFactory builds probe graphs for an engine backend.
type GraphFactory interface {
	NewGraph(uri string, live bool, l Listener) (Graph, error)
}

// DoneFunc receives the probe outcome exactly once unless the probe was
// closed first.
type DoneFunc func(p *Probe, res Result, err error)

// Option configures a probe.
type Option func(*Probe)

// WithHardwareFamilies restricts which families count as hardware video.
// Other video streams are treated as software decoded.
func WithHardwareFamilies(families ...Family) Option {
	return func(p *Probe) {
		p.hwFamilies = append([]Family(nil), families...)
	}
}

// Probe accumulates stream facts for one URI.
type Probe struct {
	uri        string
	started    time.Time
	done       DoneFunc
	logger     zerolog.Logger
	hwFamilies []Family

	mu       sync.Mutex
	graph    Graph
	result   Result
	finished bool
	closed   bool
}

// Start builds the probe graph for uri and returns immediately; the outcome
// arrives through done.
func Start(factory GraphFactory, uri string, live bool, done DoneFunc, opts ...Option) (*Probe, error) {
	p := &Probe{
		uri:     uri,
		started: time.Now(),
		done:    done,
		result:  Result{Live: live},
		logger:  log.WithComponent("probe").With().Str(log.FieldURI, uri).Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	g, err := factory.NewGraph(uri, live, p)
	if err != nil {
		metrics.ObserveProbe("build_failed", time.Since(p.started).Seconds())
		return nil, fmt.Errorf("%w: build graph for %q: %v", ErrProbeFailure, uri, err)
	}

	p.mu.Lock()
	p.graph = g
	closed := p.closed
	p.mu.Unlock()
	if closed {
		_ = g.Close()
	}

	p.logger.Debug().Str(log.FieldEvent, "probe.started").Bool(log.FieldLive, live).Msg("probe started")
	return p, nil
}

// URI returns the probed URI.
func (p *Probe) URI() string { return p.uri }

// AutoplugContinue implements Listener.
func (p *Probe) AutoplugContinue(caps Caps) bool {
	kind, family := Classify(caps)
	if kind == KindHardwareVideo && p.hwFamilies != nil && !slices.Contains(p.hwFamilies, family) {
		kind, family = KindSoftwareVideo, FamilyNone
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished || p.closed {
		return true
	}

	switch kind {
	case KindHardwareVideo:
		p.result.HasVideo = true
		p.result.HWVideoDecoders++
		p.result.Families = append(p.result.Families, family)
		p.logger.Debug().
			Str(log.FieldEvent, "probe.hw_video").
			Str(log.FieldFamily, family.String()).
			Str(log.FieldCaps, caps.String()).
			Msg("hardware-decodable video stream")
		return false
	case KindSoftwareVideo:
		p.result.HasVideo = true
		return true
	case KindAudio:
		p.result.HasAudio = true
		return false
	case KindSubtitle:
		p.result.HasSubtitle = true
		return true
	default:
		return true
	}
}

// NoMorePads implements Listener.
func (p *Probe) NoMorePads() {
	p.finish(nil)
}

// Error implements Listener.
func (p *Probe) Error(err error) {
	p.finish(fmt.Errorf("%w: %v", ErrProbeFailure, err))
}

func (p *Probe) finish(err error) {
	p.mu.Lock()
	if p.finished || p.closed {
		p.mu.Unlock()
		return
	}
	p.finished = true
	res := p.result
	res.Families = append([]Family(nil), p.result.Families...)
	p.mu.Unlock()

	outcome := "ok"
	if err != nil {
		outcome = "error"
		p.logger.Warn().Err(err).Str(log.FieldEvent, "probe.failed").Msg("probe failed")
	} else {
		p.logger.Debug().
			Str(log.FieldEvent, "probe.completed").
			Bool("has_video", res.HasVideo).
			Bool("has_audio", res.HasAudio).
			Int("hw_viddec", res.HWVideoDecoders).
			Msg("probe completed")
	}
	metrics.ObserveProbe(outcome, time.Since(p.started).Seconds())

	if p.done != nil {
		p.done(p, res, err)
	}
}

// Close tears the graph down. After Close the done callback is never
// invoked. Safe to call more than once.
func (p *Probe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	g := p.graph
	p.graph = nil
	p.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Close()
}
