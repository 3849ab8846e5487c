// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resource

import (
	"sync"

	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/metrics"
	"github.com/rs/zerolog"
)

// Arbiter hands out hardware units from per-type pools. One instance is
// shared by reference across all sessions of the process. All pool
// mutation happens under a single mutex.
type Arbiter struct {
	mu     sync.Mutex
	pools  map[Type]*pool
	logger zerolog.Logger
}

// Option configures an Arbiter.
type Option func(*arbiterOptions)

type arbiterOptions struct {
	planeIDs []int
	logger   *zerolog.Logger
}

// WithPlaneIDs overrides the hardware plane ids. The plane capacity is
// then the number of ids given.
func WithPlaneIDs(ids ...int) Option {
	return func(o *arbiterOptions) {
		o.planeIDs = append([]int(nil), ids...)
	}
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *arbiterOptions) {
		o.logger = &l
	}
}

// NewArbiter builds the pools. Types missing from caps get an empty pool.
func NewArbiter(caps Capacities, opts ...Option) *Arbiter {
	var o arbiterOptions
	for _, opt := range opts {
		opt(&o)
	}

	a := &Arbiter{pools: make(map[Type]*pool, len(Types))}
	if o.logger != nil {
		a.logger = *o.logger
	} else {
		a.logger = log.WithComponent("arbiter")
	}

	for _, t := range Types {
		n := caps[t]
		if n < 0 {
			n = 0
		}
		var ids []int
		if t == Plane && len(o.planeIDs) > 0 {
			ids = o.planeIDs
		} else {
			ids = make([]int, n)
			for i := range ids {
				ids[i] = i
			}
		}
		a.pools[t] = newPool(t, ids)
		metrics.SetResourceCapacity(t.String(), len(ids))
		metrics.SetResourceInUse(t.String(), 0)
	}
	return a
}

// Request grants one unit of req.Type. A free preferred id is always
// chosen; otherwise the first free unit is. When every unit is in use the
// error wraps ErrResourceExhausted.
func (a *Arbiter) Request(req Request) (Resource, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requestLocked(req)
}

func (a *Arbiter) requestLocked(req Request) (Resource, error) {
	p, ok := a.pools[req.Type]
	if !ok {
		return Resource{}, ErrUnknownType
	}

	id, preferred, ok := p.acquire(req.Preference)
	if !ok {
		metrics.RecordResourceRequest(req.Type.String(), "exhausted")
		a.logger.Warn().
			Str(log.FieldEvent, "resource.exhausted").
			Str(log.FieldResourceType, req.Type.String()).
			Int(log.FieldCapacity, len(p.items)).
			Msg("no free unit")
		return Resource{}, &ExhaustedError{Type: req.Type}
	}

	outcome := "granted"
	switch {
	case preferred:
		outcome = "preferred"
	case req.Preference != NoPreference:
		outcome = "fallback"
	}
	metrics.RecordResourceRequest(req.Type.String(), outcome)
	metrics.SetResourceInUse(req.Type.String(), p.inUse())

	a.logger.Debug().
		Str(log.FieldEvent, "resource.granted").
		Str(log.FieldResourceType, req.Type.String()).
		Int(log.FieldPreference, req.Preference).
		Int(log.FieldHandle, id).
		Msg("unit granted")

	return Resource{Type: req.Type, Handle: id}, nil
}

// Release returns a unit to its pool. Releasing an unknown or already free
// handle is logged and otherwise ignored.
func (a *Arbiter) Release(res Resource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseLocked(res)
}

func (a *Arbiter) releaseLocked(res Resource) {
	p, ok := a.pools[res.Type]
	if !ok || !p.release(res.Handle) {
		metrics.RecordResourceRelease(res.Type.String(), "unknown")
		a.logger.Warn().
			Str(log.FieldEvent, "resource.release_unknown").
			Str(log.FieldResourceType, res.Type.String()).
			Int(log.FieldHandle, res.Handle).
			Msg("release of unknown or free handle ignored")
		return
	}
	metrics.RecordResourceRelease(res.Type.String(), "released")
	metrics.SetResourceInUse(res.Type.String(), p.inUse())

	a.logger.Debug().
		Str(log.FieldEvent, "resource.released").
		Str(log.FieldResourceType, res.Type.String()).
		Int(log.FieldHandle, res.Handle).
		Msg("unit released")
}

// RequestBatch grants every request or none. On the first failure the
// units already granted by this batch are released before returning.
func (a *Arbiter) RequestBatch(reqs []Request) ([]Resource, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	granted := make([]Resource, 0, len(reqs))
	for _, req := range reqs {
		res, err := a.requestLocked(req)
		if err != nil {
			for i := len(granted) - 1; i >= 0; i-- {
				a.releaseLocked(granted[i])
			}
			return nil, err
		}
		granted = append(granted, res)
	}
	return granted, nil
}

// ReleaseAll releases every resource in the list.
func (a *Arbiter) ReleaseAll(list []Resource) {
	if len(list) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, res := range list {
		a.releaseLocked(res)
	}
}

// PoolStatus is a point-in-time view of one pool.
type PoolStatus struct {
	Type     string `json:"type"`
	Capacity int    `json:"capacity"`
	InUse    int    `json:"in_use"`
	UsedIDs  []int  `json:"used_ids"`
}

// Snapshot reports every pool in Types order.
func (a *Arbiter) Snapshot() []PoolStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]PoolStatus, 0, len(a.pools))
	for _, t := range Types {
		p := a.pools[t]
		out = append(out, PoolStatus{
			Type:     t.String(),
			Capacity: len(p.items),
			InUse:    p.inUse(),
			UsedIDs:  p.usedIDs(),
		})
	}
	return out
}

// Available returns the number of free units of a type.
func (a *Arbiter) Available(t Type) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.pools[t]
	if !ok {
		return 0
	}
	return len(p.items) - p.inUse()
}
