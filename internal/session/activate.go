// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/metrics"
	"github.com/ManuGH/umms/internal/platform"
	"github.com/ManuGH/umms/internal/probe"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/ManuGH/umms/internal/resume"
	"github.com/ManuGH/umms/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Play activates the session to Playing.
func (s *Session) Play(ctx context.Context) error {
	return s.activate(ctx, StatePlaying)
}

// Pause activates the session to Paused.
func (s *Session) Pause(ctx context.Context) error {
	return s.activate(ctx, StatePaused)
}

// activate moves the session towards target. When the probe has not
// completed yet the request is parked and nil is returned; the outcome is
// then reported through signals only.
func (s *Session) activate(ctx context.Context, target PlayerState) error {
	const op = "activate"
	ctx, span := s.tracer.Start(ctx, "session.activate",
		trace.WithAttributes(telemetry.SessionAttributes(s.id, s.uri, target.String())...))
	defer span.End()

	if s.closed {
		return newError(KindInvalidState, op, ErrClosed)
	}
	if s.state == StateNull {
		return newError(KindInvalidState, op, ErrNotLoaded)
	}
	if s.state == target && s.pending == StateNull {
		return nil
	}

	if s.buffering {
		// The engine stays paused until the buffer fills; only the target
		// to resume to is updated. A preroll from Stopped keeps its target.
		if target == StatePlaying || s.state == StateStopped {
			s.pending = target
		} else {
			s.pending = StateNull
		}
		span.AddEvent("buffering")
		return nil
	}

	prevPending := s.pending
	s.pending = target

	if !s.uriParsed {
		if s.probe == nil {
			if err := s.startProbe(); err != nil {
				s.pending = StateNull
				metrics.RecordActivation("probe_failed")
				span.RecordError(err)
				span.SetStatus(codes.Error, "probe failed")
				s.emitError(err)
				return err
			}
		}
		s.activation = &PendingActivation{Target: target, Requested: time.Now()}
		metrics.RecordActivation("deferred")
		span.AddEvent("deferred")
		s.logger.Debug().
			Str(log.FieldEvent, "session.activation_deferred").
			Str(log.FieldTarget, target.String()).
			Msg("activation parked until probe completes")
		return nil
	}

	if err := s.prepareResources(ctx); err != nil {
		s.pending = prevPending
		metrics.RecordActivation("exhausted")
		span.RecordError(err)
		span.SetStatus(codes.Error, "resources exhausted")
		s.emitError(err)
		return err
	}

	if err := s.engine.SetState(toEngineState(target)); err != nil {
		serr := newError(KindEngineFailure, op, fmt.Errorf("%w: %v", ErrEngineFailure, err))
		s.stopSequence()
		metrics.RecordActivation("engine_failed")
		span.RecordError(serr)
		span.SetStatus(codes.Error, "engine failure")
		s.emitError(serr)
		return serr
	}

	if s.state == target {
		s.pending = StateNull
	}
	metrics.RecordActivation("ok")
	s.logger.Info().
		Str(log.FieldEvent, "session.activated").
		Str(log.FieldOldState, s.state.String()).
		Str(log.FieldPending, target.String()).
		Msg("activation issued")
	return nil
}

func (s *Session) startProbe() error {
	autoplug := s.deps.Policy.AutoplugPolicy()
	p, err := probe.Start(s.deps.Engines, s.uri, s.live, func(p *probe.Probe, res probe.Result, err error) {
		s.deps.Dispatcher.Post(func() { s.onProbeDone(p, res, err) })
	}, probe.WithHardwareFamilies(autoplug.HardwareFamilies...))
	if err != nil {
		return newError(KindProbeFailure, "probe", err)
	}
	s.probe = p
	return nil
}

// onProbeDone freezes the probe result and resumes a parked activation.
func (s *Session) onProbeDone(p *probe.Probe, res probe.Result, err error) {
	if s.closed || p != s.probe {
		return
	}
	s.cancelProbe()
	act := s.activation
	s.activation = nil

	if err != nil {
		s.pending = StateNull
		metrics.RecordActivation("probe_failed")
		s.emitError(newError(KindProbeFailure, "probe", err))
		return
	}

	s.facts = res
	s.uriParsed = true
	s.logger.Info().
		Str(log.FieldEvent, "session.probed").
		Bool("has_video", res.HasVideo).
		Bool("has_audio", res.HasAudio).
		Int("hw_viddec", res.HWVideoDecoders).
		Msg("stream classified")

	if act == nil {
		return
	}
	s.pending = StateNull
	// Errors are already signalled by activate.
	_ = s.activate(context.Background(), act.Target)
}

// prepareResources requests the activation batch once per activation cycle.
func (s *Session) prepareResources(ctx context.Context) error {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	if s.prepared {
		return nil
	}

	_, span := s.tracer.Start(ctx, "session.prepare_resources")
	defer span.End()

	facts := platform.Facts{
		Live:            s.live,
		HasVideo:        s.facts.HasVideo,
		HasAudio:        s.facts.HasAudio,
		HWVideoDecoders: s.facts.HWVideoDecoders,
		Target:          s.target.Type,
	}
	got, err := s.deps.Policy.RequestResources(s.deps.Arbiter, facts)
	if err != nil {
		span.RecordError(err)
		kind := KindResourceExhausted
		if !errors.Is(err, resource.ErrResourceExhausted) {
			kind = KindEngineFailure
		}
		return newError(kind, "prepare", err)
	}
	span.SetAttributes(telemetry.ResourceCountAttribute(len(got)))
	s.resources = append(s.resources, got...)
	s.prepared = true
	return nil
}

// PreparePlane grants a video plane to the engine's sink. It is called
// synchronously from an engine streaming thread.
func (s *Session) PreparePlane(preferred int) (int, error) {
	res, err := s.deps.Arbiter.Request(resource.Request{Type: resource.Plane, Preference: preferred})
	if err != nil {
		s.logger.Warn().Err(err).
			Str(log.FieldEvent, "session.plane_unavailable").
			Int(log.FieldPreference, preferred).
			Msg("no plane for video sink")
		return 0, err
	}
	s.resMu.Lock()
	s.resources = append(s.resources, res)
	s.resMu.Unlock()
	s.logger.Debug().
		Str(log.FieldEvent, "session.plane_prepared").
		Int(log.FieldHandle, res.Handle).
		Int(log.FieldPreference, preferred).
		Msg("plane granted")
	return res.Handle, nil
}

// stopPipeline idles the engine and releases everything the session holds.
// It starts a new pipeline generation first, so the teardown's own
// notifications and anything still queued from before are dropped.
func (s *Session) stopPipeline() error {
	s.gen.Add(1)
	err := s.engine.SetState(engine.StateNull)
	if err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, "session.engine_stop_failed").Msg("engine did not stop cleanly")
	}

	s.resMu.Lock()
	held := s.resources
	s.resources = nil
	s.prepared = false
	s.resMu.Unlock()

	if len(held) > 0 {
		s.deps.Policy.ReleaseResources(s.deps.Arbiter, held)
		s.logger.Debug().
			Str(log.FieldEvent, "session.resources_released").
			Int("count", len(held)).
			Msg("resources released")
	}
	return err
}

// stopSequence brings the session to Stopped with nothing held. Shared by
// Stop, Suspend and the fatal error path.
func (s *Session) stopSequence() {
	_ = s.stopPipeline()

	old := s.state
	s.state = StateStopped
	s.pending = StateNull
	s.activation = nil
	s.buffering = false
	s.bufferPct = 0
	s.suspended = false
	s.restoring = false

	if old != StateStopped {
		s.emit(Signal{Kind: SignalPlayerStateChanged, OldState: old, NewState: StateStopped})
	}
	s.emit(Signal{Kind: SignalStopped})
}

func (s *Session) idle() bool {
	s.resMu.Lock()
	held := len(s.resources)
	s.resMu.Unlock()
	return s.state == StateStopped && s.pending == StateNull && s.activation == nil &&
		!s.suspended && held == 0
}

// Stop idles the engine and releases every resource. Calling it on an idle
// session does nothing.
func (s *Session) Stop(ctx context.Context) error {
	if s.closed {
		return newError(KindInvalidState, "stop", ErrClosed)
	}
	if s.state == StateNull || s.idle() {
		return nil
	}
	wasSuspended := s.suspended
	s.cancelProbe()
	s.stopSequence()
	if wasSuspended {
		s.forgetResume(ctx)
	}
	s.logger.Info().Str(log.FieldEvent, "session.stopped").Msg("session stopped")
	return nil
}

// Suspend releases the hardware while remembering where playback was.
func (s *Session) Suspend(ctx context.Context) error {
	const op = "suspend"
	if s.closed {
		return newError(KindInvalidState, op, ErrClosed)
	}
	if s.suspended {
		return nil
	}

	var pos time.Duration
	switch s.state {
	case StateNull:
		return newError(KindInvalidState, op, ErrNotLoaded)
	case StatePaused, StatePlaying:
		if p, err := s.engine.QueryPosition(); err == nil {
			pos = p
		} else {
			s.logger.Warn().Err(err).Str(log.FieldEvent, "session.position_unknown").Msg("suspending at position 0")
		}
		s.stopSequence()
	default:
		// Stopped, possibly with an activation already handed to the engine.
		s.cancelProbe()
		if s.pending != StateNull || len(s.Resources()) > 0 {
			_ = s.stopPipeline()
		}
		s.pending = StateNull
		s.activation = nil
		s.buffering = false
		s.bufferPct = 0
	}

	s.suspended = true
	s.savedPos = pos
	if s.deps.Resume != nil {
		if err := s.deps.Resume.Put(ctx, s.uri, &resume.State{Position: pos, UpdatedAt: time.Now()}); err != nil {
			s.logger.Warn().Err(err).Str(log.FieldEvent, "resume.save_failed").Msg("resume position not persisted")
		}
	}
	s.logger.Info().
		Str(log.FieldEvent, "session.suspended").
		Dur(log.FieldPosition, pos).
		Msg("session suspended")
	s.emit(Signal{Kind: SignalSuspended, Position: pos})
	return nil
}

// Restore reactivates a suspended session. The seek to the saved position
// happens once the engine reports Paused.
func (s *Session) Restore(ctx context.Context) error {
	const op = "restore"
	if s.closed {
		return newError(KindInvalidState, op, ErrClosed)
	}
	if s.state != StateStopped || !s.suspended {
		return newError(KindInvalidState, op, fmt.Errorf("%w: not suspended", ErrInvalidState))
	}
	s.restoring = true
	if err := s.activate(ctx, StatePaused); err != nil {
		s.restoring = false
		return err
	}
	return nil
}

// completeRestore runs when a suspended session first reaches Paused.
func (s *Session) completeRestore() {
	pos := s.savedPos
	seekable, err := s.engine.QuerySeekable()
	if err != nil {
		seekable = false
	}
	if seekable && !s.live && pos > 0 {
		if err := s.engine.Seek(pos, 1.0); err != nil {
			s.logger.Warn().Err(err).Str(log.FieldEvent, "session.restore_seek_failed").Msg("resuming from the start")
		} else {
			s.emit(Signal{Kind: SignalSeeked, Position: pos})
		}
	}

	restoring := s.restoring
	s.suspended = false
	s.restoring = false
	s.savedPos = 0
	s.forgetResume(context.Background())

	s.logger.Info().
		Str(log.FieldEvent, "session.restored").
		Dur(log.FieldPosition, pos).
		Bool("seeked", seekable && !s.live).
		Msg("session restored")
	s.emit(Signal{Kind: SignalRestored, Position: pos})

	if restoring {
		_ = s.activate(context.Background(), StatePlaying)
	}
}

func (s *Session) forgetResume(ctx context.Context) {
	if s.deps.Resume == nil {
		return
	}
	if err := s.deps.Resume.Delete(ctx, s.uri); err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, "resume.delete_failed").Msg("resume entry not removed")
	}
}
