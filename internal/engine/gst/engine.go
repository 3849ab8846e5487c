// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build gst

package gst

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ManuGH/umms/internal/engine"
	ulog "github.com/ManuGH/umms/internal/log"
	"github.com/tinyzimmer/go-gst/gst"
)

// planeUnavailable is the message of the resource error posted when no
// hardware plane can be granted.
const planeUnavailable = "Plane unavailable"

var errClosed = errors.New("gst: engine closed")

// preparePlaneMessage is the element message a plane sink posts from its
// streaming thread when it needs a hardware plane.
const preparePlaneMessage = "prepare-gdl-plane"

// Engine wraps one playbin. Bus messages are translated by a sync handler
// in the thread that posts them, so notifications keep the order in which
// the pipeline raised them.
type Engine struct {
	hooks   engine.Hooks
	playbin *gst.Element
	bus     *gst.Bus

	mu       sync.Mutex
	state    engine.State
	target   engine.VideoTarget
	sink     *gst.Element
	hasPlane bool
	bufPct   int
	closed   bool
}

func newEngine(h engine.Hooks) (*Engine, error) {
	playbin, err := newElement("playbin")
	if err != nil {
		return nil, err
	}
	e := &Engine{
		hooks:   h,
		playbin: playbin,
		bus:     playbin.GetBus(),
		target:  engine.VideoTarget{Type: engine.TargetReserved0, Plane: -1},
		bufPct:  100,
	}
	e.bus.SetSyncHandler(e.syncMessage)
	return e, nil
}

func (e *Engine) syncMessage(msg *gst.Message) gst.BusSyncReply {
	switch msg.Type() {
	case gst.MessageElement:
		if st := msg.GetStructure(); st != nil && st.Name() == preparePlaneMessage {
			e.preparePlane(msg.Source())
		}
	case gst.MessageStateChanged:
		if msg.Source() != e.playbin.GetName() {
			break
		}
		oldState, newState := msg.ParseStateChanged()
		e.mu.Lock()
		e.state = fromGstState(newState)
		e.mu.Unlock()
		e.notify(engine.StateChanged{Old: fromGstState(oldState), New: fromGstState(newState)})
	case gst.MessageEOS:
		e.notify(engine.EOS{})
	case gst.MessageError:
		gerr := msg.ParseError()
		logger.Warn().
			Str("error", gerr.Error()).
			Str("debug", gerr.DebugString()).
			Str(ulog.FieldComponent, msg.Source()).
			Msg("pipeline error")
		e.notify(engine.Error{Domain: engine.DomainEngine, Message: gerr.Error()})
	case gst.MessageBuffering:
		pct := msg.ParseBuffering()
		e.mu.Lock()
		e.bufPct = pct
		e.mu.Unlock()
		e.notify(engine.Buffering{Percent: pct})
	case gst.MessageTag:
		if tl := msg.ParseTags(); tl != nil {
			e.notify(tagOf(tl))
		}
	}
	// Nothing pops this bus.
	return gst.BusDrop
}

// preparePlane asks the session for a plane on behalf of the sink named
// source and hands the granted plane to it. Runs on the sink's streaming
// thread, which waits for the answer before rendering.
func (e *Engine) preparePlane(source string) {
	e.mu.Lock()
	sink := e.sink
	preferred := e.target.Plane
	granted := e.hasPlane
	e.mu.Unlock()
	if granted || sink == nil || sink.GetName() != source || e.hooks.PreparePlane == nil {
		return
	}

	plane, err := e.hooks.PreparePlane(preferred)
	if err != nil {
		e.notify(engine.Error{Domain: engine.DomainResource, Message: planeUnavailable})
		return
	}
	if err := sink.SetProperty("plane-id", plane); err != nil {
		logger.Warn().Err(err).Int(ulog.FieldHandle, plane).Msg("sink rejected plane id")
		return
	}
	e.mu.Lock()
	e.hasPlane = true
	e.mu.Unlock()
}

func tagOf(tl *gst.TagList) engine.Tag {
	t := engine.Tag{Tags: map[string]string{}}
	if v, ok := tl.GetString(gst.TagTitle); ok {
		t.Title = v
	}
	if v, ok := tl.GetString(gst.TagArtist); ok {
		t.Artist = v
	}
	for _, name := range []gst.Tag{gst.TagAlbum, gst.TagGenre, gst.TagVideoCodec, gst.TagAudioCodec} {
		if v, ok := tl.GetString(name); ok {
			t.Tags[string(name)] = v
		}
	}
	return t
}

func (e *Engine) notify(n engine.Notification) {
	if e.hooks.Notify != nil {
		e.hooks.Notify(n)
	}
}

// SetURI implements engine.Engine.
func (e *Engine) SetURI(uri string) error {
	if err := e.check(); err != nil {
		return err
	}
	return e.playbin.SetProperty("uri", uri)
}

// SetState implements engine.Engine. Planes are requested by the sink
// itself once it reaches Paused.
func (e *Engine) SetState(target engine.State) error {
	if err := e.check(); err != nil {
		return err
	}
	if err := e.playbin.SetState(toGstState(target)); err != nil {
		return fmt.Errorf("set state %s: %w", target, err)
	}
	if target == engine.StateNull {
		e.mu.Lock()
		e.hasPlane = false
		e.mu.Unlock()
	}
	return nil
}

// State implements engine.Engine.
func (e *Engine) State() engine.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Seek implements engine.Engine.
func (e *Engine) Seek(pos time.Duration, rate float64) error {
	if err := e.check(); err != nil {
		return err
	}
	if rate == 0 {
		rate = 1
	}
	ok := e.playbin.Seek(rate, gst.FormatTime, gst.SeekFlagFlush|gst.SeekFlagKeyUnit,
		gst.SeekTypeSet, pos.Nanoseconds(), gst.SeekTypeNone, -1)
	if !ok {
		return fmt.Errorf("seek to %s rejected", pos)
	}
	return nil
}

// QueryPosition implements engine.Engine.
func (e *Engine) QueryPosition() (time.Duration, error) {
	ok, ns := e.playbin.QueryPosition(gst.FormatTime)
	if !ok {
		return 0, fmt.Errorf("position query failed")
	}
	return time.Duration(ns), nil
}

// QueryDuration implements engine.Engine.
func (e *Engine) QueryDuration() (time.Duration, error) {
	ok, ns := e.playbin.QueryDuration(gst.FormatTime)
	if !ok {
		return 0, fmt.Errorf("duration query failed")
	}
	return time.Duration(ns), nil
}

// QuerySeekable implements engine.Engine.
func (e *Engine) QuerySeekable() (bool, error) {
	q := gst.NewSeekingQuery(gst.FormatTime)
	if !e.playbin.Query(q) {
		return false, fmt.Errorf("seeking query failed")
	}
	_, seekable, _, _ := q.ParseSeeking()
	return seekable, nil
}

// QueryBufferingPercent implements engine.Engine.
func (e *Engine) QueryBufferingPercent() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bufPct, nil
}

// SetVolume implements engine.Engine. playbin's volume is linear with
// 1.0 as 100%.
func (e *Engine) SetVolume(volume int) error {
	if err := e.check(); err != nil {
		return err
	}
	return e.playbin.SetProperty("volume", float64(volume)/100)
}

// Volume implements engine.Engine.
func (e *Engine) Volume() (int, error) {
	v, err := e.playbin.GetProperty("volume")
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected volume type %T", v)
	}
	return int(math.Round(f * 100)), nil
}

// SetMute implements engine.Engine.
func (e *Engine) SetMute(mute bool) error {
	if err := e.check(); err != nil {
		return err
	}
	return e.playbin.SetProperty("mute", mute)
}

// Mute implements engine.Engine.
func (e *Engine) Mute() (bool, error) {
	v, err := e.playbin.GetProperty("mute")
	if err != nil {
		return false, err
	}
	m, _ := v.(bool)
	return m, nil
}

// SetVideoTarget implements engine.Engine by choosing playbin's video
// sink. Only applied while the pipeline is below Paused.
func (e *Engine) SetVideoTarget(t engine.VideoTarget) error {
	if err := e.check(); err != nil {
		return err
	}
	factory, err := sinkFactory(t.Type)
	if err != nil {
		return err
	}
	sink, err := newElement(factory)
	if err != nil {
		return err
	}
	if err := e.playbin.SetProperty("video-sink", sink); err != nil {
		return fmt.Errorf("set video sink: %w", err)
	}
	e.mu.Lock()
	e.target = t
	e.sink = sink
	e.hasPlane = false
	e.mu.Unlock()
	return nil
}

func sinkFactory(t engine.TargetType) (string, error) {
	switch t {
	case engine.TargetXWindow:
		return "ximagesink", nil
	case engine.TargetDataCopy:
		return "appsink", nil
	case engine.TargetSocket:
		return "shmsink", nil
	case engine.TargetReserved0:
		return "kmssink", nil
	default:
		return "", fmt.Errorf("%w: target %s", engine.ErrUnsupported, t)
	}
}

// Close implements engine.Engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	err := e.playbin.SetState(gst.StateNull)
	e.bus.SetSyncHandler(func(*gst.Message) gst.BusSyncReply { return gst.BusDrop })
	return err
}

func (e *Engine) check() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}
	return nil
}

var _ engine.Engine = (*Engine)(nil)
