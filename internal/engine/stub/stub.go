// Package stub is an in-memory engine backend. It performs no decoding but
// reproduces the asynchronous notification behaviour of a real pipeline,
// which makes session behaviour deterministic under test.
package stub

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/probe"
)

// BackendName is the registry name of this backend.
const BackendName = "stub"

func init() {
	engine.Register(BackendName, func() (engine.Factory, error) {
		return NewFactory(), nil
	})
}

// Factory creates stub engines and probe graphs and keeps them for inspection.
type Factory struct {
	mu      sync.Mutex
	engines []*Engine
	graphs  []*Graph

	// GraphErr makes NewGraph fail.
	GraphErr error
	// EngineErr makes NewEngine fail.
	EngineErr error
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{}
}

// NewEngine implements engine.Factory.
func (f *Factory) NewEngine(h engine.Hooks) (engine.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EngineErr != nil {
		return nil, f.EngineErr
	}
	e := &Engine{
		hooks:    h,
		volume:   50,
		seekable: true,
		target:   engine.VideoTarget{Type: engine.TargetReserved0, Plane: -1},
	}
	f.engines = append(f.engines, e)
	return e, nil
}

// NewGraph implements probe.GraphFactory.
func (f *Factory) NewGraph(uri string, live bool, l probe.Listener) (probe.Graph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GraphErr != nil {
		return nil, f.GraphErr
	}
	g := &Graph{URI: uri, Live: live, listener: l}
	f.graphs = append(f.graphs, g)
	return g, nil
}

// Engines returns every engine created so far.
func (f *Factory) Engines() []*Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Engine(nil), f.engines...)
}

// LastEngine returns the most recently created engine or nil.
func (f *Factory) LastEngine() *Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

// Graphs returns every probe graph created so far.
func (f *Factory) Graphs() []*Graph {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Graph(nil), f.graphs...)
}

// LastGraph returns the most recently created probe graph or nil.
func (f *Factory) LastGraph() *Graph {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.graphs) == 0 {
		return nil
	}
	return f.graphs[len(f.graphs)-1]
}

// Graph is a scripted probe graph. Tests drive discovery explicitly.
type Graph struct {
	URI  string
	Live bool

	mu       sync.Mutex
	listener probe.Listener
	closed   bool
}

// Discover offers each caps to the listener and then signals no-more-pads.
// It returns the autoplug decisions in order.
func (g *Graph) Discover(caps ...probe.Caps) []bool {
	out := make([]bool, 0, len(caps))
	for _, c := range caps {
		out = append(out, g.listener.AutoplugContinue(c))
	}
	g.listener.NoMorePads()
	return out
}

// Fail reports a graph error.
func (g *Graph) Fail(err error) {
	g.listener.Error(err)
}

// Close implements probe.Graph.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// Closed reports whether the graph was torn down.
func (g *Graph) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// ErrPlaneUnavailable is the message posted when plane preparation fails.
const ErrPlaneUnavailable = "Plane unavailable"

// Engine is a scripted pipeline.
type Engine struct {
	mu        sync.Mutex
	hooks     engine.Hooks
	uri       string
	state     engine.State
	target    engine.VideoTarget
	plane     int
	hasPlane  bool
	volume    int
	mute      bool
	position  time.Duration
	duration  time.Duration
	seekable  bool
	buffering int
	seeks     []time.Duration
	requested []engine.State
	closed    bool

	// SetStateErr makes SetState fail synchronously.
	SetStateErr error
}

var errClosed = errors.New("stub: engine closed")

// SetURI implements engine.Engine.
func (e *Engine) SetURI(uri string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}
	e.uri = uri
	return nil
}

// URI returns the configured URI.
func (e *Engine) URI() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uri
}

// SetState implements engine.Engine. Each intermediate step is reported as
// its own StateChanged notification, like a real pipeline.
func (e *Engine) SetState(target engine.State) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errClosed
	}
	if e.SetStateErr != nil {
		err := e.SetStateErr
		e.mu.Unlock()
		return err
	}
	e.requested = append(e.requested, target)

	needPlane := target >= engine.StatePaused && e.state < engine.StatePaused &&
		e.target.Type == engine.TargetReserved0 && !e.hasPlane && e.hooks.PreparePlane != nil
	preferred := e.target.Plane
	e.mu.Unlock()

	if needPlane {
		granted, err := e.hooks.PreparePlane(preferred)
		if err != nil {
			e.notify(engine.Error{Domain: engine.DomainResource, Message: ErrPlaneUnavailable})
			return nil
		}
		e.mu.Lock()
		e.plane = granted
		e.hasPlane = true
		e.mu.Unlock()
	}

	e.mu.Lock()
	var steps []engine.Notification
	for e.state != target {
		old := e.state
		if target > e.state {
			e.state++
		} else {
			e.state--
		}
		steps = append(steps, engine.StateChanged{Old: old, New: e.state})
	}
	if e.state == engine.StateNull {
		e.hasPlane = false
	}
	e.mu.Unlock()

	for _, n := range steps {
		e.notify(n)
	}
	return nil
}

// State implements engine.Engine.
func (e *Engine) State() engine.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Requested returns every target passed to SetState.
func (e *Engine) Requested() []engine.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engine.State(nil), e.requested...)
}

// Seek implements engine.Engine.
func (e *Engine) Seek(pos time.Duration, rate float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seekable {
		return engine.ErrUnsupported
	}
	e.position = pos
	e.seeks = append(e.seeks, pos)
	return nil
}

// Seeks returns every seek position requested.
func (e *Engine) Seeks() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]time.Duration(nil), e.seeks...)
}

// QueryPosition implements engine.Engine.
func (e *Engine) QueryPosition() (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position, nil
}

// QueryDuration implements engine.Engine.
func (e *Engine) QueryDuration() (time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration, nil
}

// QuerySeekable implements engine.Engine.
func (e *Engine) QuerySeekable() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seekable, nil
}

// QueryBufferingPercent implements engine.Engine.
func (e *Engine) QueryBufferingPercent() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffering, nil
}

// SetVolume implements engine.Engine.
func (e *Engine) SetVolume(volume int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = volume
	return nil
}

// Volume implements engine.Engine.
func (e *Engine) Volume() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume, nil
}

// SetMute implements engine.Engine.
func (e *Engine) SetMute(mute bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mute = mute
	return nil
}

// Mute implements engine.Engine.
func (e *Engine) Mute() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mute, nil
}

// SetVideoTarget implements engine.Engine.
func (e *Engine) SetVideoTarget(t engine.VideoTarget) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = t
	return nil
}

// VideoTarget returns the configured sink target.
func (e *Engine) VideoTarget() engine.VideoTarget {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

// Plane returns the plane granted by the last preparation.
func (e *Engine) Plane() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plane, e.hasPlane
}

// Close implements engine.Engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.state = engine.StateNull
	return nil
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// SetPosition sets the position reported by QueryPosition.
func (e *Engine) SetPosition(pos time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.position = pos
}

// SetDuration sets the duration reported by QueryDuration.
func (e *Engine) SetDuration(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = d
}

// SetSeekable sets what QuerySeekable reports.
func (e *Engine) SetSeekable(seekable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekable = seekable
}

// Buffer reports a buffering level.
func (e *Engine) Buffer(percent int) {
	e.mu.Lock()
	e.buffering = percent
	e.mu.Unlock()
	e.notify(engine.Buffering{Percent: percent})
}

// Emit injects an arbitrary notification.
func (e *Engine) Emit(n engine.Notification) {
	e.notify(n)
}

func (e *Engine) notify(n engine.Notification) {
	if e.hooks.Notify != nil {
		e.hooks.Notify(n)
	}
}
