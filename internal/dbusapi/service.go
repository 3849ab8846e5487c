// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package dbusapi exposes players on the DBus: an object manager that
// creates and disposes players, one object per player, and the session
// signals forwarded from the bus.
package dbusapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ManuGH/umms/internal/bus"
	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/metrics"
	"github.com/ManuGH/umms/internal/session"
	"github.com/ManuGH/umms/internal/telemetry"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/rs/zerolog"
)

// Well-known names.
const (
	ServiceName        = "com.meego.UMMS"
	ObjectManagerPath  = dbus.ObjectPath("/com/meego/UMMS/ObjectManager")
	ObjectManagerIface = "com.meego.UMMS.ObjectManager"
	PlayerPathPrefix   = "/com/meego/UMMS/MediaPlayer/"
	PlayerIface        = "com.meego.UMMS.MediaPlayer"
	ErrorPrefix        = "com.meego.UMMS.Error."
)

// DefaultCallTimeout bounds how long one method call may wait for the
// event loop.
const DefaultCallTimeout = 5 * time.Second

// ErrNameTaken is returned when another process owns the service name.
var ErrNameTaken = errors.New("dbus name already owned")

// Conn is the part of *dbus.Conn the service uses.
type Conn interface {
	Export(v interface{}, path dbus.ObjectPath, iface string) error
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	ReleaseName(name string) (dbus.ReleaseNameReply, error)
}

// Players is the player registry the service drives.
type Players interface {
	Create(ctx context.Context) (string, error)
	Remove(ctx context.Context, id string) error
	With(ctx context.Context, id string, fn func(*session.Session) error) error
}

// Option configures a Service.
type Option func(*Service)

// WithName overrides the requested bus name.
func WithName(name string) Option {
	return func(s *Service) { s.name = name }
}

// WithCallTimeout overrides DefaultCallTimeout.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// Service is the DBus surface of the daemon.
type Service struct {
	conn        Conn
	players     Players
	name        string
	callTimeout time.Duration
	logger      zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	byID    map[string]*player
	byPath  map[dbus.ObjectPath]*player
	next    int
	started bool
}

// New creates the service. Nothing is exported until Start.
func New(conn Conn, players Players, opts ...Option) *Service {
	s := &Service{
		conn:        conn,
		players:     players,
		name:        ServiceName,
		callTimeout: DefaultCallTimeout,
		logger:      log.WithComponent("dbus"),
		ctx:         context.Background(),
		byID:        make(map[string]*player),
		byPath:      make(map[dbus.ObjectPath]*player),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start exports the object manager and claims the service name. ctx
// is the parent of every method call context.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	om := &objectManager{svc: s}
	if err := s.conn.Export(om, ObjectManagerPath, ObjectManagerIface); err != nil {
		return fmt.Errorf("export object manager: %w", err)
	}
	node := &introspect.Node{
		Name: string(ObjectManagerPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: ObjectManagerIface, Methods: introspect.Methods(om)},
		},
	}
	if err := s.conn.Export(introspect.NewIntrospectable(node), ObjectManagerPath, introspectIface); err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}

	reply, err := s.conn.RequestName(s.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request name %s: %w", s.name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("%w: %s", ErrNameTaken, s.name)
	}

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	s.logger.Info().Str(log.FieldEvent, "dbus.started").Str("name", s.name).Msg("dbus service started")
	return nil
}

// Run forwards signals from sub to the player objects until ctx is done
// or the subscription closes.
func (s *Service) Run(ctx context.Context, sub bus.Subscriber) error {
	defer func() { _ = sub.Close() }()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			sig, ok := msg.(session.Signal)
			if !ok {
				continue
			}
			s.forward(sig)
		}
	}
}

// Close disposes of every exported player and releases the name.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	players := make([]*player, 0, len(s.byID))
	for _, p := range s.byID {
		players = append(players, p)
	}
	started := s.started
	s.started = false
	s.mu.Unlock()

	var errs []error
	for _, p := range players {
		if err := s.removePlayer(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	_ = s.conn.Export(nil, ObjectManagerPath, ObjectManagerIface)
	_ = s.conn.Export(nil, ObjectManagerPath, introspectIface)
	if started {
		if _, err := s.conn.ReleaseName(s.name); err != nil {
			errs = append(errs, fmt.Errorf("release name: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ready reports an error unless the name is owned and the connection is
// up. Used by the health checker.
func (s *Service) Ready(_ context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("dbus service not started")
	}
	if c, ok := s.conn.(interface{ Connected() bool }); ok && !c.Connected() {
		return errors.New("dbus connection lost")
	}
	return nil
}

// PathOf returns the object path of a player id.
func (s *Service) PathOf(id string) (dbus.ObjectPath, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return "", false
	}
	return p.path, true
}

func (s *Service) addPlayer(ctx context.Context) (*player, error) {
	id, err := s.players.Create(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	path := dbus.ObjectPath(PlayerPathPrefix + strconv.Itoa(s.next))
	s.next++
	p := &player{svc: s, id: id, path: path}
	s.byID[id] = p
	s.byPath[path] = p
	s.mu.Unlock()

	if err := s.export(p); err != nil {
		s.mu.Lock()
		delete(s.byID, id)
		delete(s.byPath, path)
		s.mu.Unlock()
		_ = s.players.Remove(ctx, id)
		return nil, err
	}

	s.logger.Info().
		Str(log.FieldEvent, "dbus.player_exported").
		Str(log.FieldSessionID, id).
		Str(log.FieldPath, string(path)).
		Msg("player exported")
	return p, nil
}

func (s *Service) export(p *player) error {
	if err := s.conn.Export(p, p.path, PlayerIface); err != nil {
		return fmt.Errorf("export %s: %w", p.path, err)
	}
	node := &introspect.Node{
		Name: string(p.path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: PlayerIface, Methods: introspect.Methods(p), Signals: playerSignals},
		},
	}
	if err := s.conn.Export(introspect.NewIntrospectable(node), p.path, introspectIface); err != nil {
		_ = s.conn.Export(nil, p.path, PlayerIface)
		return fmt.Errorf("export introspection %s: %w", p.path, err)
	}
	return nil
}

func (s *Service) lookup(path dbus.ObjectPath) (*player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byPath[path]
	return p, ok
}

func (s *Service) removePlayer(ctx context.Context, p *player) error {
	s.mu.Lock()
	delete(s.byID, p.id)
	delete(s.byPath, p.path)
	s.mu.Unlock()

	_ = s.conn.Export(nil, p.path, PlayerIface)
	_ = s.conn.Export(nil, p.path, introspectIface)

	if err := s.players.Remove(ctx, p.id); err != nil {
		return err
	}
	s.logger.Info().
		Str(log.FieldEvent, "dbus.player_removed").
		Str(log.FieldSessionID, p.id).
		Str(log.FieldPath, string(p.path)).
		Msg("player removed")
	return nil
}

// forward emits one session signal on the player's object.
func (s *Service) forward(sig session.Signal) {
	s.mu.Lock()
	p, ok := s.byID[sig.SessionID]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.conn.Emit(p.path, PlayerIface+"."+string(sig.Kind), signalArgs(sig)...); err != nil {
		s.logger.Warn().
			Err(err).
			Str(log.FieldSessionID, sig.SessionID).
			Str(log.FieldEvent, string(sig.Kind)).
			Msg("failed to emit dbus signal")
	}
}

// callContext derives the context for one method call. sessionID is empty
// for object manager calls.
func (s *Service) callContext(member string, path dbus.ObjectPath, sessionID string) (context.Context, func(error) *dbus.Error) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.callTimeout)
	if sessionID != "" {
		ctx = log.ContextWithSessionID(ctx, sessionID)
	}
	ctx, span := telemetry.StartSpan(ctx, "umms/dbus", "dbus."+member, telemetry.DBusAttributes(member, string(path))...)

	return ctx, func(err error) *dbus.Error {
		defer cancel()
		defer span.End()
		if err == nil {
			metrics.RecordDBusCall(member, "ok")
			return nil
		}
		derr := toDBusError(err)
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(derr.Name)...)
		metrics.RecordDBusCall(member, errorSuffix(derr.Name))
		logger := log.WithComponentFromContext(ctx, "dbus")
		logger.Debug().
			Err(err).
			Str("member", member).
			Str(log.FieldPath, string(path)).
			Msg("dbus call failed")
		return derr
	}
}

const introspectIface = "org.freedesktop.DBus.Introspectable"
