// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/engine/stub"
	"github.com/ManuGH/umms/internal/eventloop"
	"github.com/ManuGH/umms/internal/platform"
	"github.com/ManuGH/umms/internal/probe"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/ManuGH/umms/internal/session"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newManager(t *testing.T, cfg Config) (*Manager, *stub.Factory) {
	t.Helper()
	loop := eventloop.New(64)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = loop.Run(ctx)
	}()

	factory := stub.NewFactory()
	if cfg.Arbiter == nil {
		cfg.Arbiter = resource.NewArbiter(resource.DefaultCapacities())
	}
	if cfg.Policy == nil {
		cfg.Policy = platform.New(platform.Generic, platform.DefaultAcquisition(platform.Generic))
	}
	cfg.Engines = factory

	m, err := New(loop, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = m.Close(context.Background())
		cancel()
		wg.Wait()
	})
	return m, factory
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, Config{})
	require.Error(t, err)
	_, err = New(eventloop.New(1), Config{})
	require.Error(t, err)
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m, factory := newManager(t, Config{})

	id, err := m.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, m.With(ctx, id, func(s *session.Session) error {
		if err := s.SetURI(ctx, "file:///movie.ts"); err != nil {
			return err
		}
		return s.Play(ctx)
	}))

	factory.LastGraph().Discover(probe.Caps{Name: "video/mpeg", Fields: map[string]any{"mpegversion": 2}})
	require.Eventually(t, func() bool {
		info, err := m.Get(ctx, id)
		return err == nil && info.State == session.StatePlaying
	}, time.Second, 5*time.Millisecond)

	info, err := m.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "file:///movie.ts", info.URI)
	require.NotEmpty(t, info.Resources)
	require.Less(t, m.Arbiter().Available(resource.HwClock), 5)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, id, list[0].ID)

	require.NoError(t, m.Remove(ctx, id))
	require.Equal(t, 5, m.Arbiter().Available(resource.HwClock))
	require.Equal(t, 2, m.Arbiter().Available(resource.HwVideoDecoder))
	require.True(t, factory.LastEngine().Closed())

	require.ErrorIs(t, m.Remove(ctx, id), ErrNotFound)
	_, err = m.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestManager_MaxPlayers(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, Config{MaxPlayers: 2})

	for i := 0; i < 2; i++ {
		_, err := m.Create(ctx)
		require.NoError(t, err)
	}
	_, err := m.Create(ctx)
	require.ErrorIs(t, err, ErrTooManyPlayers)
}

func TestManager_SetPolicyAppliesToNewPlayers(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, Config{})

	before, err := m.Create(ctx)
	require.NoError(t, err)

	m.SetPolicy(platform.New(platform.Satellite, platform.DefaultAcquisition(platform.Satellite)))
	require.Equal(t, platform.Satellite, m.Policy().Variant())
	after, err := m.Create(ctx)
	require.NoError(t, err)

	xwin := platform.Target{Type: engine.TargetXWindow}
	require.NoError(t, m.With(ctx, before, func(s *session.Session) error {
		return s.SetTarget(ctx, xwin)
	}))
	err = m.With(ctx, after, func(s *session.Session) error {
		return s.SetTarget(ctx, xwin)
	})
	require.ErrorIs(t, err, session.ErrInvalidArgument)
}
