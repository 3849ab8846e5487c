// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build gst

// Package gst is the GStreamer engine backend: a playbin per session and
// a uridecodebin graph per probe. Build with -tags gst; the C libraries
// of GStreamer 1.x must be installed.
package gst

import (
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/probe"
	"github.com/tinyzimmer/go-gst/gst"
)

// BackendName is the registry name of this backend.
const BackendName = "gst"

// busPollInterval bounds how long a watcher blocks on the bus, and so
// how quickly it notices Close.
const busPollInterval = 50 * time.Millisecond

var initOnce sync.Once

func init() {
	engine.Register(BackendName, func() (engine.Factory, error) {
		initOnce.Do(func() { gst.Init(nil) })
		return &Factory{}, nil
	})
}

// Factory builds playbin engines and uridecodebin probe graphs.
type Factory struct{}

// NewEngine implements engine.Factory.
func (f *Factory) NewEngine(h engine.Hooks) (engine.Engine, error) {
	return newEngine(h)
}

// NewGraph implements probe.GraphFactory.
func (f *Factory) NewGraph(uri string, live bool, l probe.Listener) (probe.Graph, error) {
	return newGraph(uri, live, l)
}

func toGstState(s engine.State) gst.State {
	switch s {
	case engine.StatePlaying:
		return gst.StatePlaying
	case engine.StatePaused:
		return gst.StatePaused
	case engine.StateReady:
		return gst.StateReady
	default:
		return gst.StateNull
	}
}

func fromGstState(s gst.State) engine.State {
	switch s {
	case gst.StatePlaying:
		return engine.StatePlaying
	case gst.StatePaused:
		return engine.StatePaused
	case gst.StateReady:
		return engine.StateReady
	default:
		return engine.StateNull
	}
}

// capsOf converts the first structure of caps.
func capsOf(c *gst.Caps) (probe.Caps, bool) {
	if c == nil || c.GetSize() == 0 {
		return probe.Caps{}, false
	}
	st := c.GetStructureAt(0)
	if st == nil {
		return probe.Caps{}, false
	}
	return probe.Caps{Name: st.Name(), Fields: st.Values()}, true
}

func newElement(factory string) (*gst.Element, error) {
	el, err := gst.NewElement(factory)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", factory, err)
	}
	return el, nil
}

var logger = log.WithComponent("engine.gst")
