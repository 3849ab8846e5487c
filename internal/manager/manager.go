// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager owns the set of live players. Every session operation
// is funnelled through the event loop, so transports can call in from any
// goroutine.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/eventloop"
	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/metrics"
	"github.com/ManuGH/umms/internal/platform"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/ManuGH/umms/internal/resume"
	"github.com/ManuGH/umms/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned for an unknown player id.
	ErrNotFound = errors.New("player not found")
	// ErrTooManyPlayers is returned when MaxPlayers is reached.
	ErrTooManyPlayers = errors.New("too many players")
)

// Loop is the event loop the manager runs sessions on.
type Loop interface {
	eventloop.Dispatcher
	Call(ctx context.Context, fn func() error) error
}

// Config wires the manager.
type Config struct {
	Arbiter     *resource.Arbiter
	Engines     engine.Factory
	Policy      platform.Policy
	Emitter     session.Emitter
	Resume      resume.Store
	LiveSchemes []string
	// MaxPlayers caps concurrent players; 0 means unlimited.
	MaxPlayers int
}

// Info is a point-in-time view of one player.
type Info struct {
	ID        string              `json:"id"`
	URI       string              `json:"uri,omitempty"`
	State     session.PlayerState `json:"state"`
	Pending   session.PlayerState `json:"pending_state"`
	Live      bool                `json:"live"`
	Suspended bool                `json:"suspended"`
	Resources []resource.Resource `json:"resources"`
}

type policyBox struct {
	platform.Policy
}

// Manager is the player registry.
type Manager struct {
	loop   Loop
	cfg    Config
	policy atomic.Pointer[policyBox]
	logger zerolog.Logger

	// Loop-owned.
	sessions map[string]*session.Session
}

// New creates a manager running sessions on loop.
func New(loop Loop, cfg Config) (*Manager, error) {
	if loop == nil {
		return nil, errors.New("manager: event loop is required")
	}
	if cfg.Arbiter == nil || cfg.Engines == nil || cfg.Policy == nil {
		return nil, errors.New("manager: arbiter, engines and policy are required")
	}
	m := &Manager{
		loop:     loop,
		cfg:      cfg,
		logger:   log.WithComponent("manager"),
		sessions: make(map[string]*session.Session),
	}
	m.policy.Store(&policyBox{cfg.Policy})
	return m, nil
}

// Arbiter returns the shared arbiter.
func (m *Manager) Arbiter() *resource.Arbiter { return m.cfg.Arbiter }

// Policy returns the policy new players are created with.
func (m *Manager) Policy() platform.Policy { return m.policy.Load().Policy }

// SetPolicy swaps the policy for players created from now on. Existing
// players keep theirs.
func (m *Manager) SetPolicy(p platform.Policy) {
	if p == nil {
		return
	}
	m.policy.Store(&policyBox{p})
	m.logger.Info().
		Str(log.FieldEvent, "manager.policy_swapped").
		Str(log.FieldVariant, p.Variant().String()).
		Msg("platform policy updated")
}

// Create adds a player in state Null and returns its id.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	err := m.loop.Call(ctx, func() error {
		if m.cfg.MaxPlayers > 0 && len(m.sessions) >= m.cfg.MaxPlayers {
			return fmt.Errorf("%w (max %d)", ErrTooManyPlayers, m.cfg.MaxPlayers)
		}
		s, err := session.New(id, session.Deps{
			Arbiter:     m.cfg.Arbiter,
			Policy:      m.Policy(),
			Engines:     m.cfg.Engines,
			Dispatcher:  m.loop,
			Emitter:     m.cfg.Emitter,
			Resume:      m.cfg.Resume,
			LiveSchemes: m.cfg.LiveSchemes,
		})
		if err != nil {
			return err
		}
		m.sessions[id] = s
		metrics.IncSessionsActive()
		return nil
	})
	if err != nil {
		return "", err
	}
	m.logger.Info().Str(log.FieldEvent, "manager.player_created").Str(log.FieldSessionID, id).Msg("player created")
	return id, nil
}

// Remove disposes of a player, releasing everything it holds.
func (m *Manager) Remove(ctx context.Context, id string) error {
	err := m.loop.Call(ctx, func() error {
		s, ok := m.sessions[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		delete(m.sessions, id)
		metrics.DecSessionsActive()
		return s.Close(ctx)
	})
	if err != nil {
		return err
	}
	m.logger.Info().Str(log.FieldEvent, "manager.player_removed").Str(log.FieldSessionID, id).Msg("player removed")
	return nil
}

// With runs fn against the player on the event loop.
func (m *Manager) With(ctx context.Context, id string, fn func(*session.Session) error) error {
	return m.loop.Call(ctx, func() error {
		s, ok := m.sessions[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fn(s)
	})
}

// Get returns a snapshot of one player.
func (m *Manager) Get(ctx context.Context, id string) (Info, error) {
	var out Info
	err := m.With(ctx, id, func(s *session.Session) error {
		out = infoOf(s)
		return nil
	})
	return out, err
}

// List returns a snapshot of every player, ordered by id.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	var out []Info
	err := m.loop.Call(ctx, func() error {
		out = make([]Info, 0, len(m.sessions))
		for _, s := range m.sessions {
			out = append(out, infoOf(s))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close disposes of every player.
func (m *Manager) Close(ctx context.Context) error {
	return m.loop.Call(ctx, func() error {
		var errs []error
		for id, s := range m.sessions {
			if err := s.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", id, err))
			}
			delete(m.sessions, id)
			metrics.DecSessionsActive()
		}
		return errors.Join(errs...)
	})
}

func infoOf(s *session.Session) Info {
	return Info{
		ID:        s.ID(),
		URI:       s.URI(),
		State:     s.State(),
		Pending:   s.Pending(),
		Live:      s.IsStreaming(),
		Suspended: s.Suspended(),
		Resources: s.Resources(),
	}
}
