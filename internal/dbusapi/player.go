// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package dbusapi

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/manager"
	"github.com/ManuGH/umms/internal/platform"
	"github.com/ManuGH/umms/internal/session"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

type objectManager struct {
	svc *Service
}

// RequestMediaPlayer creates a player and returns its object path.
func (om *objectManager) RequestMediaPlayer() (dbus.ObjectPath, *dbus.Error) {
	ctx, done := om.svc.callContext("RequestMediaPlayer", ObjectManagerPath, "")
	p, err := om.svc.addPlayer(ctx)
	if err != nil {
		return "", done(err)
	}
	return p.path, done(nil)
}

// RemoveMediaPlayer disposes of the player at path.
func (om *objectManager) RemoveMediaPlayer(path dbus.ObjectPath) *dbus.Error {
	ctx, done := om.svc.callContext("RemoveMediaPlayer", ObjectManagerPath, "")
	p, ok := om.svc.lookup(path)
	if !ok {
		return done(fmt.Errorf("%w: %s", manager.ErrNotFound, path))
	}
	return done(om.svc.removePlayer(ctx, p))
}

// ListMediaPlayers returns the paths of every exported player.
func (om *objectManager) ListMediaPlayers() ([]dbus.ObjectPath, *dbus.Error) {
	om.svc.mu.Lock()
	defer om.svc.mu.Unlock()
	out := make([]dbus.ObjectPath, 0, len(om.svc.byPath))
	for path := range om.svc.byPath {
		out = append(out, path)
	}
	return out, nil
}

// player is the object exported for one session. Positions and durations
// are in milliseconds on the wire.
type player struct {
	svc  *Service
	id   string
	path dbus.ObjectPath
}

func (p *player) do(member string, fn func(ctx context.Context, s *session.Session) error) *dbus.Error {
	ctx, done := p.svc.callContext(member, p.path, p.id)
	return done(p.svc.players.With(ctx, p.id, func(s *session.Session) error {
		return fn(ctx, s)
	}))
}

func (p *player) SetUri(uri string) *dbus.Error {
	return p.do("SetUri", func(ctx context.Context, s *session.Session) error {
		return s.SetURI(ctx, uri)
	})
}

func (p *player) GetCurrentUri() (string, *dbus.Error) {
	var uri string
	derr := p.do("GetCurrentUri", func(_ context.Context, s *session.Session) error {
		uri = s.URI()
		return nil
	})
	return uri, derr
}

func (p *player) Play() *dbus.Error {
	return p.do("Play", func(ctx context.Context, s *session.Session) error {
		return s.Play(ctx)
	})
}

func (p *player) Pause() *dbus.Error {
	return p.do("Pause", func(ctx context.Context, s *session.Session) error {
		return s.Pause(ctx)
	})
}

func (p *player) Stop() *dbus.Error {
	return p.do("Stop", func(ctx context.Context, s *session.Session) error {
		return s.Stop(ctx)
	})
}

func (p *player) SetPosition(ms int64) *dbus.Error {
	return p.do("SetPosition", func(ctx context.Context, s *session.Session) error {
		return s.SetPosition(ctx, time.Duration(ms)*time.Millisecond)
	})
}

func (p *player) GetPosition() (int64, *dbus.Error) {
	var pos time.Duration
	derr := p.do("GetPosition", func(_ context.Context, s *session.Session) (err error) {
		pos, err = s.Position()
		return err
	})
	return pos.Milliseconds(), derr
}

func (p *player) GetMediaSizeTime() (int64, *dbus.Error) {
	var d time.Duration
	derr := p.do("GetMediaSizeTime", func(_ context.Context, s *session.Session) (err error) {
		d, err = s.Duration()
		return err
	})
	return d.Milliseconds(), derr
}

func (p *player) SetVolume(volume int32) *dbus.Error {
	return p.do("SetVolume", func(_ context.Context, s *session.Session) error {
		return s.SetVolume(int(volume))
	})
}

func (p *player) GetVolume() (int32, *dbus.Error) {
	var v int
	derr := p.do("GetVolume", func(_ context.Context, s *session.Session) (err error) {
		v, err = s.Volume()
		return err
	})
	return int32(v), derr
}

func (p *player) SetMute(mute bool) *dbus.Error {
	return p.do("SetMute", func(_ context.Context, s *session.Session) error {
		return s.SetMute(mute)
	})
}

func (p *player) IsMute() (bool, *dbus.Error) {
	var m bool
	derr := p.do("IsMute", func(_ context.Context, s *session.Session) (err error) {
		m, err = s.Mute()
		return err
	})
	return m, derr
}

// SetTarget selects the render target. params carries "rectangle"
// (string) and "plane-id" (integer) as variants.
func (p *player) SetTarget(targetType int32, params map[string]dbus.Variant) *dbus.Error {
	t := platform.Target{Type: engine.TargetType(targetType), Params: make(map[string]any, len(params))}
	for k, v := range params {
		t.Params[k] = v.Value()
	}
	return p.do("SetTarget", func(ctx context.Context, s *session.Session) error {
		return s.SetTarget(ctx, t)
	})
}

func (p *player) GetPlayerState() (int32, *dbus.Error) {
	var st session.PlayerState
	derr := p.do("GetPlayerState", func(_ context.Context, s *session.Session) error {
		st = s.State()
		return nil
	})
	return int32(st), derr
}

func (p *player) Suspend() *dbus.Error {
	return p.do("Suspend", func(ctx context.Context, s *session.Session) error {
		return s.Suspend(ctx)
	})
}

func (p *player) Restore() *dbus.Error {
	return p.do("Restore", func(ctx context.Context, s *session.Session) error {
		return s.Restore(ctx)
	})
}

func (p *player) HasVideo() (bool, *dbus.Error) {
	var v bool
	derr := p.do("HasVideo", func(_ context.Context, s *session.Session) error {
		v = s.HasVideo()
		return nil
	})
	return v, derr
}

func (p *player) HasAudio() (bool, *dbus.Error) {
	var v bool
	derr := p.do("HasAudio", func(_ context.Context, s *session.Session) error {
		v = s.HasAudio()
		return nil
	})
	return v, derr
}

func (p *player) IsStreaming() (bool, *dbus.Error) {
	var v bool
	derr := p.do("IsStreaming", func(_ context.Context, s *session.Session) error {
		v = s.IsStreaming()
		return nil
	})
	return v, derr
}

func (p *player) GetBufferedPercent() (int32, *dbus.Error) {
	var pct int
	derr := p.do("GetBufferedPercent", func(_ context.Context, s *session.Session) error {
		_, pct = s.Buffering()
		return nil
	})
	return int32(pct), derr
}

// GetMetadata returns uri, title, artist and any other tags seen.
func (p *player) GetMetadata() (map[string]string, *dbus.Error) {
	out := map[string]string{}
	derr := p.do("GetMetadata", func(_ context.Context, s *session.Session) error {
		md := s.Metadata()
		for k, v := range md.Tags {
			out[k] = v
		}
		out["uri"] = md.URI
		if md.Title != "" {
			out["title"] = md.Title
		}
		if md.Artist != "" {
			out["artist"] = md.Artist
		}
		return nil
	})
	return out, derr
}

// signalArgs is the DBus body of each signal.
func signalArgs(sig session.Signal) []interface{} {
	switch sig.Kind {
	case session.SignalPlayerStateChanged:
		return []interface{}{int32(sig.OldState), int32(sig.NewState)}
	case session.SignalError:
		return []interface{}{uint32(sig.Code), sig.Message}
	case session.SignalBuffering:
		return []interface{}{int32(sig.Percent)}
	case session.SignalSeeked, session.SignalSuspended:
		return []interface{}{sig.Position.Milliseconds()}
	default:
		return nil
	}
}

var playerSignals = []introspect.Signal{
	{Name: string(session.SignalPlayerStateChanged), Args: []introspect.Arg{{Name: "old_state", Type: "i"}, {Name: "new_state", Type: "i"}}},
	{Name: string(session.SignalError), Args: []introspect.Arg{{Name: "code", Type: "u"}, {Name: "message", Type: "s"}}},
	{Name: string(session.SignalBuffering), Args: []introspect.Arg{{Name: "percent", Type: "i"}}},
	{Name: string(session.SignalBuffered)},
	{Name: string(session.SignalEOF)},
	{Name: string(session.SignalSeeked), Args: []introspect.Arg{{Name: "position_ms", Type: "x"}}},
	{Name: string(session.SignalStopped)},
	{Name: string(session.SignalMetadataChanged)},
	{Name: string(session.SignalSuspended), Args: []introspect.Arg{{Name: "position_ms", Type: "x"}}},
	{Name: string(session.SignalRestored)},
}
