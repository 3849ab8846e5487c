// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build gst

package gst

import (
	"testing"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/stretchr/testify/require"
	"github.com/tinyzimmer/go-gst/gst"
)

func TestStateMappingRoundTrips(t *testing.T) {
	for _, s := range []engine.State{engine.StateNull, engine.StateReady, engine.StatePaused, engine.StatePlaying} {
		require.Equal(t, s, fromGstState(toGstState(s)))
	}
}

func TestSinkFactory(t *testing.T) {
	name, err := sinkFactory(engine.TargetReserved0)
	require.NoError(t, err)
	require.Equal(t, "kmssink", name)

	_, err = sinkFactory(engine.TargetReserved2)
	require.ErrorIs(t, err, engine.ErrUnsupported)
}

func TestRegistered(t *testing.T) {
	require.Contains(t, engine.Backends(), BackendName)
	f, err := engine.Open(BackendName)
	require.NoError(t, err)
	require.NotNil(t, f)
}

func TestSinkRequestsPlaneSynchronously(t *testing.T) {
	_, err := engine.Open(BackendName)
	require.NoError(t, err)

	var asked []int
	e, err := newEngine(engine.Hooks{
		PreparePlane: func(preferred int) (int, error) {
			asked = append(asked, preferred)
			return 1, nil
		},
	})
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.SetVideoTarget(engine.VideoTarget{Type: engine.TargetDataCopy, Plane: 2}))

	// The sync handler runs inside Post.
	require.True(t, e.bus.Post(gst.NewElementMessage(e.sink, gst.NewStructure(preparePlaneMessage))))
	require.Equal(t, []int{2}, asked)

	require.True(t, e.bus.Post(gst.NewElementMessage(e.sink, gst.NewStructure("some-other-message"))))
	require.Equal(t, []int{2}, asked)
}
