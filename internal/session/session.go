// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session implements the playback state machine of one player:
// probing a URI, committing hardware through the arbiter, driving the
// engine, and releasing everything however the session ends.
//
// A Session is not safe for concurrent use. Every method except
// PreparePlane must run on the event loop given in Deps.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/eventloop"
	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/metrics"
	"github.com/ManuGH/umms/internal/platform"
	"github.com/ManuGH/umms/internal/probe"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/ManuGH/umms/internal/resume"
	"github.com/ManuGH/umms/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the collaborators of a session.
type Deps struct {
	Arbiter    *resource.Arbiter
	Policy     platform.Policy
	Engines    engine.Factory
	Dispatcher eventloop.Dispatcher
	Emitter    Emitter
	// Resume is optional.
	Resume resume.Store
	// LiveSchemes overrides probe.DefaultLiveSchemes when non-nil.
	LiveSchemes []string
}

func (d Deps) validate() error {
	switch {
	case d.Arbiter == nil:
		return errors.New("session: arbiter is required")
	case d.Policy == nil:
		return errors.New("session: platform policy is required")
	case d.Engines == nil:
		return errors.New("session: engine factory is required")
	case d.Dispatcher == nil:
		return errors.New("session: dispatcher is required")
	}
	return nil
}

// Session is one player.
type Session struct {
	id     string
	deps   Deps
	engine engine.Engine
	logger zerolog.Logger
	tracer trace.Tracer

	uri        string
	live       bool
	state      PlayerState
	pending    PlayerState
	facts      probe.Result
	uriParsed  bool
	probe      *probe.Probe
	activation *PendingActivation
	target     platform.Target
	buffering  bool
	bufferPct  int
	suspended  bool
	restoring  bool
	savedPos   time.Duration
	metadata   Metadata
	closed     bool

	// gen counts pipeline teardowns. Notifications are stamped with it when
	// the engine raises them, so events from a torn-down run are dropped.
	gen atomic.Uint64

	// resMu guards the resource list, which PreparePlane appends to from
	// the engine's streaming thread.
	resMu     sync.Mutex
	resources []resource.Resource
	prepared  bool
}

// New creates a session in StateNull with its engine.
func New(id string, deps Deps) (*Session, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	s := &Session{
		id:     id,
		deps:   deps,
		logger: log.WithComponent("session").With().Str(log.FieldSessionID, id).Logger(),
		tracer: telemetry.Tracer("umms/session"),
		target: platform.Target{Type: engine.TargetReserved0},
	}

	eng, err := deps.Engines.NewEngine(engine.Hooks{
		Notify: func(n engine.Notification) {
			gen := s.gen.Load()
			deps.Dispatcher.Post(func() { s.handle(gen, n) })
		},
		PreparePlane: s.PreparePlane,
	})
	if err != nil {
		return nil, newError(KindEngineFailure, "new", fmt.Errorf("%w: %v", ErrEngineFailure, err))
	}
	s.engine = eng

	if err := deps.Policy.SetTarget(eng, s.target); err != nil {
		_ = eng.Close()
		return nil, newError(KindEngineFailure, "new", err)
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// URI returns the loaded URI.
func (s *Session) URI() string { return s.uri }

// State returns the player state.
func (s *Session) State() PlayerState { return s.state }

// Pending returns the state an activation is heading to, or StateNull.
func (s *Session) Pending() PlayerState { return s.pending }

// Activation returns the parked activation, if any.
func (s *Session) Activation() (PendingActivation, bool) {
	if s.activation == nil {
		return PendingActivation{}, false
	}
	return *s.activation, true
}

// IsStreaming reports whether the URI is a live source.
func (s *Session) IsStreaming() bool { return s.live }

// HasVideo reports whether the probe found a video stream.
func (s *Session) HasVideo() bool { return s.facts.HasVideo }

// HasAudio reports whether the probe found an audio stream.
func (s *Session) HasAudio() bool { return s.facts.HasAudio }

// Probed reports whether stream discovery has completed for the URI.
func (s *Session) Probed() bool { return s.uriParsed }

// Facts returns the frozen probe result.
func (s *Session) Facts() probe.Result { return s.facts }

// Suspended reports whether the session is suspended.
func (s *Session) Suspended() bool { return s.suspended }

// Buffering reports whether the session is in the buffering sub-state and
// the last reported percentage.
func (s *Session) Buffering() (bool, int) { return s.buffering, s.bufferPct }

// Metadata returns a copy of the media metadata.
func (s *Session) Metadata() Metadata { return s.metadata.clone() }

// Target returns the render target.
func (s *Session) Target() platform.Target { return s.target }

// Resources returns a copy of the units held by the session.
func (s *Session) Resources() []resource.Resource {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	return append([]resource.Resource(nil), s.resources...)
}

// SetURI loads a URI. It is accepted while Null or Stopped; any probe in
// flight for the previous URI is torn down first.
func (s *Session) SetURI(ctx context.Context, uri string) error {
	const op = "set_uri"
	if s.closed {
		return newError(KindInvalidState, op, ErrClosed)
	}
	if uri == "" {
		return fmt.Errorf("%s: %w: empty uri", op, ErrInvalidArgument)
	}
	if s.state == StatePaused || s.state == StatePlaying {
		return newError(KindInvalidState, op, fmt.Errorf("%w: %s", ErrInvalidState, s.state))
	}

	s.cancelProbe()
	if s.state != StateNull {
		_ = s.stopPipeline()
	}
	if err := s.engine.SetURI(uri); err != nil {
		return newError(KindEngineFailure, op, fmt.Errorf("%w: %v", ErrEngineFailure, err))
	}

	s.uri = uri
	s.live = probe.IsLive(uri, s.deps.LiveSchemes)
	s.facts = probe.Result{}
	s.uriParsed = false
	s.pending = StateNull
	s.activation = nil
	s.buffering = false
	s.bufferPct = 0
	s.suspended = false
	s.restoring = false
	s.savedPos = 0
	s.metadata = Metadata{URI: uri}

	if s.deps.Resume != nil {
		saved, err := s.deps.Resume.Get(ctx, uri)
		if err != nil {
			s.logger.Warn().Err(err).Str(log.FieldEvent, "resume.lookup_failed").Msg("resume lookup failed")
		} else if saved != nil {
			s.suspended = true
			s.savedPos = saved.Position
		}
	}

	s.logger.Info().
		Str(log.FieldEvent, "session.uri_set").
		Str(log.FieldURI, uri).
		Bool(log.FieldLive, s.live).
		Bool("suspended", s.suspended).
		Msg("uri loaded")

	old := s.state
	s.state = StateStopped
	md := s.metadata.clone()
	s.emit(Signal{Kind: SignalMetadataChanged, Metadata: &md})
	if old != StateStopped {
		s.emit(Signal{Kind: SignalPlayerStateChanged, OldState: old, NewState: StateStopped})
	}
	return nil
}

// SetTarget selects the render target. Rejected while Paused or Playing.
func (s *Session) SetTarget(_ context.Context, t platform.Target) error {
	const op = "set_target"
	if s.closed {
		return newError(KindInvalidState, op, ErrClosed)
	}
	if s.state == StatePaused || s.state == StatePlaying {
		return newError(KindInvalidState, op, fmt.Errorf("%w: %s", ErrInvalidState, s.state))
	}
	if err := s.deps.Policy.SetTarget(s.engine, t); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidArgument, err)
	}
	s.target = t
	s.logger.Debug().Str(log.FieldEvent, "session.target_set").Str(log.FieldTarget, t.Type.String()).Msg("render target set")
	return nil
}

// SetPosition seeks. Only meaningful while Paused or Playing.
func (s *Session) SetPosition(_ context.Context, pos time.Duration) error {
	const op = "set_position"
	if s.state != StatePaused && s.state != StatePlaying {
		return newError(KindInvalidState, op, fmt.Errorf("%w: %s", ErrInvalidState, s.state))
	}
	if pos < 0 {
		return fmt.Errorf("%s: %w: negative position", op, ErrInvalidArgument)
	}
	if err := s.engine.Seek(pos, 1.0); err != nil {
		return newError(KindEngineFailure, op, fmt.Errorf("%w: %v", ErrEngineFailure, err))
	}
	s.emit(Signal{Kind: SignalSeeked, Position: pos})
	return nil
}

// Position returns the current playback position.
func (s *Session) Position() (time.Duration, error) {
	if s.state == StateNull {
		return 0, newError(KindInvalidState, "position", ErrNotLoaded)
	}
	return s.engine.QueryPosition()
}

// Duration returns the media duration.
func (s *Session) Duration() (time.Duration, error) {
	if s.state == StateNull {
		return 0, newError(KindInvalidState, "duration", ErrNotLoaded)
	}
	return s.engine.QueryDuration()
}

// SetVolume sets the volume (0..100).
func (s *Session) SetVolume(volume int) error {
	if err := s.deps.Policy.SetVolume(s.engine, volume); err != nil {
		if errors.Is(err, platform.ErrInvalidVolume) {
			return fmt.Errorf("set_volume: %w: %v", ErrInvalidArgument, err)
		}
		return newError(KindEngineFailure, "set_volume", err)
	}
	return nil
}

// Volume returns the volume.
func (s *Session) Volume() (int, error) { return s.engine.Volume() }

// SetMute mutes or unmutes audio.
func (s *Session) SetMute(mute bool) error {
	if err := s.deps.Policy.SetMute(s.engine, mute); err != nil {
		return newError(KindEngineFailure, "set_mute", err)
	}
	return nil
}

// Mute reports the mute state.
func (s *Session) Mute() (bool, error) { return s.engine.Mute() }

// Close disposes of the session: the probe is torn down, every resource
// released and the engine closed.
func (s *Session) Close(_ context.Context) error {
	if s.closed {
		return nil
	}
	s.cancelProbe()
	_ = s.stopPipeline()
	s.closed = true
	s.activation = nil
	s.pending = StateNull
	s.state = StateNull
	s.logger.Info().Str(log.FieldEvent, "session.closed").Msg("session disposed")
	return s.engine.Close()
}

func (s *Session) cancelProbe() {
	if s.probe == nil {
		return
	}
	if err := s.probe.Close(); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, "probe.teardown_failed").Msg("probe teardown failed")
	}
	s.probe = nil
}

func (s *Session) emit(sig Signal) {
	sig.SessionID = s.id
	metrics.RecordSignal(string(sig.Kind))
	if s.deps.Emitter != nil {
		s.deps.Emitter.Emit(sig)
	}
}

func (s *Session) emitError(err error) {
	s.emit(Signal{Kind: SignalError, Code: CodeOf(err), Message: err.Error()})
}
