// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"fmt"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/resource"
)

// handle dispatches one engine notification raised during pipeline
// generation gen. Runs on the event loop.
func (s *Session) handle(gen uint64, n engine.Notification) {
	if s.closed {
		return
	}
	if gen != s.gen.Load() {
		s.logger.Trace().
			Str(log.FieldEvent, "session.stale_notification").
			Str("type", fmt.Sprintf("%T", n)).
			Msg("dropped notification from a torn-down pipeline")
		return
	}
	switch ev := n.(type) {
	case engine.StateChanged:
		s.onStateChanged(ev)
	case engine.Error:
		s.onError(ev)
	case engine.EOS:
		s.logger.Info().Str(log.FieldEvent, "session.eos").Msg("end of stream")
		s.emit(Signal{Kind: SignalEOF})
	case engine.Buffering:
		s.onBuffering(ev.Percent)
	case engine.Tag:
		s.onTag(ev)
	}
}

func (s *Session) onStateChanged(ev engine.StateChanged) {
	next, ok := fromEngineState(ev)
	if !ok {
		return
	}
	// While Stopped, only an activation in flight may move the state, and
	// only upwards. Anything else is left over from a teardown.
	if s.state == StateStopped && (s.pending == StateNull || ev.New < ev.Old) {
		return
	}
	if s.state == StateNull {
		return
	}

	old := s.state
	s.state = next
	// Buffering holds the Playing target until the buffer has refilled.
	if s.pending == next && !(s.buffering && next == StatePlaying) {
		s.pending = StateNull
	}
	if old == next {
		return
	}

	s.logger.Debug().
		Str(log.FieldEvent, "session.state_changed").
		Str(log.FieldOldState, old.String()).
		Str(log.FieldNewState, next.String()).
		Str(log.FieldPending, s.pending.String()).
		Msg("player state changed")
	s.emit(Signal{Kind: SignalPlayerStateChanged, OldState: old, NewState: next})

	if next == StatePaused && old == StateStopped && s.suspended {
		s.completeRestore()
	}
}

// onError forces the stop sequence before the error reaches clients.
func (s *Session) onError(ev engine.Error) {
	var err error
	if ev.Domain == engine.DomainResource {
		err = newError(KindResourceExhausted, "engine", fmt.Errorf("%w: %s", resource.ErrResourceExhausted, ev.Message))
	} else {
		err = newError(KindEngineFailure, "engine", fmt.Errorf("%w: %s: %s", ErrEngineFailure, ev.Domain, ev.Message))
	}
	s.logger.Error().Err(err).Str(log.FieldEvent, "session.engine_error").Msg("fatal engine error")

	s.cancelProbe()
	s.stopSequence()
	s.emitError(err)
}

// onBuffering pauses a non-live source while its buffer refills and
// resumes Playing afterwards if that was where it was heading. A preroll
// still in flight from Stopped counts as active.
func (s *Session) onBuffering(percent int) {
	active := s.state == StatePaused || s.state == StatePlaying ||
		(s.state == StateStopped && s.pending != StateNull)
	if !active {
		return
	}
	if s.live {
		if percent < 100 {
			s.emit(Signal{Kind: SignalBuffering, Percent: percent})
		} else {
			s.emit(Signal{Kind: SignalBuffered})
		}
		return
	}

	if percent < 100 {
		s.bufferPct = percent
		if !s.buffering {
			s.buffering = true
			if s.state == StatePlaying || s.pending == StatePlaying {
				s.pending = StatePlaying
			}
			if s.pending == StatePlaying {
				if err := s.engine.SetState(engine.StatePaused); err != nil {
					s.logger.Warn().Err(err).Str(log.FieldEvent, "session.buffering_pause_failed").Msg("could not pause for buffering")
				}
			}
			s.logger.Debug().Str(log.FieldEvent, "session.buffering").Int(log.FieldPercent, percent).Msg("buffering started")
		}
		s.emit(Signal{Kind: SignalBuffering, Percent: percent})
		return
	}

	if !s.buffering {
		return
	}
	s.buffering = false
	s.bufferPct = 100
	s.logger.Debug().Str(log.FieldEvent, "session.buffered").Msg("buffering finished")
	s.emit(Signal{Kind: SignalBuffered})

	if s.pending == StatePlaying {
		if err := s.engine.SetState(engine.StatePlaying); err != nil {
			serr := newError(KindEngineFailure, "buffering", fmt.Errorf("%w: %v", ErrEngineFailure, err))
			s.stopSequence()
			s.emitError(serr)
		}
	}
}

func (s *Session) onTag(ev engine.Tag) {
	md := s.metadata.clone()
	changed := false
	if ev.Title != "" && ev.Title != md.Title {
		md.Title = ev.Title
		changed = true
	}
	if ev.Artist != "" && ev.Artist != md.Artist {
		md.Artist = ev.Artist
		changed = true
	}
	for k, v := range ev.Tags {
		if md.Tags == nil {
			md.Tags = make(map[string]string, len(ev.Tags))
		}
		if old, ok := md.Tags[k]; !ok || old != v {
			md.Tags[k] = v
			changed = true
		}
	}
	if !changed {
		return
	}
	s.metadata = md
	out := md.clone()
	s.emit(Signal{Kind: SignalMetadataChanged, Metadata: &out})
}
