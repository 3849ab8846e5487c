// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resource

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestArbiter_ExhaustsAfterCapacity(t *testing.T) {
	for _, typ := range Types {
		t.Run(typ.String(), func(t *testing.T) {
			caps := DefaultCapacities()
			a := NewArbiter(caps)

			for i := 0; i < caps[typ]; i++ {
				_, err := a.Request(Request{Type: typ, Preference: NoPreference})
				require.NoError(t, err)
			}

			_, err := a.Request(Request{Type: typ, Preference: NoPreference})
			require.ErrorIs(t, err, ErrResourceExhausted)

			var exhausted *ExhaustedError
			require.True(t, errors.As(err, &exhausted))
			require.Equal(t, typ, exhausted.Type)
		})
	}
}

func TestArbiter_PlanePreference(t *testing.T) {
	a := NewArbiter(DefaultCapacities())

	first, err := a.Request(Request{Type: Plane, Preference: PlaneUPPB})
	require.NoError(t, err)
	require.Equal(t, PlaneUPPB, first.Handle)

	// Preferred plane is taken: fall back to the other one rather than fail.
	second, err := a.Request(Request{Type: Plane, Preference: PlaneUPPB})
	require.NoError(t, err)
	require.Equal(t, PlaneUPPA, second.Handle)

	_, err = a.Request(Request{Type: Plane, Preference: PlaneUPPA})
	require.ErrorIs(t, err, ErrResourceExhausted)
}

func TestArbiter_PreferenceOutOfRangeFallsBack(t *testing.T) {
	a := NewArbiter(DefaultCapacities())

	res, err := a.Request(Request{Type: HwClock, Preference: 42})
	require.NoError(t, err)
	require.Equal(t, 0, res.Handle)
}

func TestArbiter_DoubleReleaseIsNoop(t *testing.T) {
	a := NewArbiter(Capacities{HwVideoDecoder: 2})

	r1, err := a.Request(Request{Type: HwVideoDecoder, Preference: NoPreference})
	require.NoError(t, err)
	r2, err := a.Request(Request{Type: HwVideoDecoder, Preference: NoPreference})
	require.NoError(t, err)

	a.Release(r1)
	a.Release(r1)
	require.Equal(t, 1, a.Available(HwVideoDecoder))

	// The second holder keeps its unit.
	got, err := a.Request(Request{Type: HwVideoDecoder, Preference: NoPreference})
	require.NoError(t, err)
	require.Equal(t, r1.Handle, got.Handle)
	require.NotEqual(t, r2.Handle, got.Handle)
}

func TestArbiter_ReleaseUnknownHandle(t *testing.T) {
	a := NewArbiter(DefaultCapacities())

	a.Release(Resource{Type: Tuner, Handle: 7})
	a.Release(Resource{Type: Type(99), Handle: 0})
	require.Equal(t, 1, a.Available(Tuner))
}

func TestArbiter_UnknownType(t *testing.T) {
	a := NewArbiter(DefaultCapacities())
	_, err := a.Request(Request{Type: Type(99), Preference: NoPreference})
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestArbiter_BatchRollsBackOnFailure(t *testing.T) {
	a := NewArbiter(Capacities{HwClock: 1, HwVideoDecoder: 1})

	// Take the only decoder so the batch fails on its second request.
	held, err := a.Request(Request{Type: HwVideoDecoder, Preference: NoPreference})
	require.NoError(t, err)

	before := a.Snapshot()
	_, err = a.RequestBatch([]Request{
		{Type: HwClock, Preference: NoPreference},
		{Type: HwVideoDecoder, Preference: NoPreference},
	})
	require.ErrorIs(t, err, ErrResourceExhausted)

	if diff := cmp.Diff(before, a.Snapshot()); diff != "" {
		t.Fatalf("pools changed after failed batch (-before +after):\n%s", diff)
	}

	a.Release(held)
	got, err := a.RequestBatch([]Request{
		{Type: HwClock, Preference: NoPreference},
		{Type: HwVideoDecoder, Preference: NoPreference},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestArbiter_WithPlaneIDs(t *testing.T) {
	a := NewArbiter(DefaultCapacities(), WithPlaneIDs(4, 5, 6))

	res, err := a.Request(Request{Type: Plane, Preference: 6})
	require.NoError(t, err)
	require.Equal(t, 6, res.Handle)
	require.Equal(t, 2, a.Available(Plane))
}

func TestArbiter_Snapshot(t *testing.T) {
	a := NewArbiter(DefaultCapacities())
	_, err := a.Request(Request{Type: HwClock, Preference: 3})
	require.NoError(t, err)

	want := []PoolStatus{
		{Type: "plane", Capacity: 2, InUse: 0, UsedIDs: []int{}},
		{Type: "hw_video_decoder", Capacity: 2, InUse: 0, UsedIDs: []int{}},
		{Type: "hw_clock", Capacity: 5, InUse: 1, UsedIDs: []int{3}},
		{Type: "tuner", Capacity: 1, InUse: 0, UsedIDs: []int{}},
	}
	if diff := cmp.Diff(want, a.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestArbiter_ConcurrentRequestsNeverOverGrant(t *testing.T) {
	a := NewArbiter(DefaultCapacities())

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted []Resource
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := a.Request(Request{Type: HwClock, Preference: NoPreference})
			if err != nil {
				return
			}
			mu.Lock()
			granted = append(granted, res)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, granted, 5)
	seen := map[int]bool{}
	for _, r := range granted {
		require.False(t, seen[r.Handle], "handle %d granted twice", r.Handle)
		seen[r.Handle] = true
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range Types {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, got)
	}
	_, err := ParseType("gpu")
	require.ErrorIs(t, err, ErrUnknownType)

	text, err := HwClock.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "hw_clock", string(text))
}
