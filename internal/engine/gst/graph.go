// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build gst

package gst

import (
	"fmt"
	"sync"

	"github.com/ManuGH/umms/internal/probe"
	"github.com/tinyzimmer/go-gst/gst"
)

// Graph is a paused uridecodebin whose decoded pads are sunk into
// fakesinks. Streams are reported through autoplug-continue.
type Graph struct {
	pipeline *gst.Pipeline
	listener probe.Listener
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func newGraph(uri string, live bool, l probe.Listener) (*Graph, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("create probe pipeline: %w", err)
	}
	src, err := newElement("uridecodebin")
	if err != nil {
		return nil, err
	}
	if err := src.SetProperty("uri", uri); err != nil {
		return nil, fmt.Errorf("set probe uri: %w", err)
	}
	if live {
		_ = src.SetProperty("use-buffering", true)
	}
	if err := pipeline.Add(src); err != nil {
		return nil, fmt.Errorf("add uridecodebin: %w", err)
	}

	g := &Graph{pipeline: pipeline, listener: l, done: make(chan struct{})}

	if _, err := src.Connect("autoplug-continue", func(_ *gst.Element, _ *gst.Pad, caps *gst.Caps) bool {
		c, ok := capsOf(caps)
		if !ok {
			return true
		}
		return l.AutoplugContinue(c)
	}); err != nil {
		return nil, fmt.Errorf("connect autoplug-continue: %w", err)
	}
	if _, err := src.Connect("pad-added", func(_ *gst.Element, pad *gst.Pad) {
		sink, err := newElement("fakesink")
		if err != nil {
			return
		}
		if err := pipeline.Add(sink); err != nil {
			return
		}
		_ = sink.SyncStateWithParent()
		pad.Link(sink.GetStaticPad("sink"))
	}); err != nil {
		return nil, fmt.Errorf("connect pad-added: %w", err)
	}
	if _, err := src.Connect("no-more-pads", func(_ *gst.Element) {
		l.NoMorePads()
	}); err != nil {
		return nil, fmt.Errorf("connect no-more-pads: %w", err)
	}

	g.wg.Add(1)
	go g.watch()

	if err := pipeline.SetState(gst.StatePaused); err != nil {
		_ = g.Close()
		return nil, fmt.Errorf("start probe pipeline: %w", err)
	}
	return g, nil
}

func (g *Graph) watch() {
	defer g.wg.Done()
	bus := g.pipeline.GetPipelineBus()
	for {
		select {
		case <-g.done:
			return
		default:
		}
		msg := bus.TimedPop(busPollInterval)
		if msg == nil || msg.Type() != gst.MessageError {
			continue
		}
		gerr := msg.ParseError()
		g.listener.Error(fmt.Errorf("%s: %s", msg.Source(), gerr.Error()))
		return
	}
}

// Close implements probe.Graph.
func (g *Graph) Close() error {
	var err error
	g.once.Do(func() {
		err = g.pipeline.SetState(gst.StateNull)
		close(g.done)
		g.wg.Wait()
	})
	return err
}

var _ probe.Graph = (*Graph)(nil)
