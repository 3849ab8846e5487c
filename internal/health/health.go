// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks for ummsd with
// per-component status (resource pools, resume store, client bus).
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/resource"
)

// Status is the health of one component or of the whole daemon.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// worse reports whether s is a worse status than o.
func (s Status) worse(o Status) bool {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	return rank[s] > rank[o]
}

// CheckResult is the outcome of one Checker.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse is the /readyz body.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker inspects one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager aggregates registered Checkers. Checkers may be registered while
// probes are being served.
type Manager struct {
	version string
	started time.Time

	mu       sync.RWMutex
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version, started: time.Now()}
}

// RegisterChecker adds c to every subsequent verbose health and readiness
// evaluation.
func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	m.checkers = append(m.checkers, c)
	m.mu.Unlock()
}

// run evaluates all checkers; overall is the worst component status.
func (m *Manager) run(ctx context.Context) (map[string]CheckResult, Status) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	if len(checkers) == 0 {
		return nil, StatusHealthy
	}
	results := make(map[string]CheckResult, len(checkers))
	overall := StatusHealthy
	for _, c := range checkers {
		r := c.Check(ctx)
		results[c.Name()] = r
		if r.Status.worse(overall) {
			overall = r.Status
		}
	}
	return results, overall
}

// Health is the liveness view. Components are only evaluated when verbose;
// a live process always answers.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Uptime:    int64(time.Since(m.started).Seconds()),
		Timestamp: time.Now(),
	}
	if verbose {
		resp.Checks, resp.Status = m.run(ctx)
	}
	return resp
}

// Ready is the readiness view: not ready while any component is unhealthy.
// Degraded components (exhausted pools, a broken resume store) stay ready.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	checks, status := m.run(ctx)
	return ReadinessResponse{
		Ready:     status != StatusUnhealthy,
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// ServeHealth answers liveness probes, always with 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	resp := m.Health(r.Context(), verbose)
	writeProbe(r.Context(), w, "health", http.StatusOK, resp, resp.Status)
}

// ServeReady answers readiness probes with 200 or 503.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeProbe(r.Context(), w, "readiness", code, resp, resp.Status)
}

func writeProbe(ctx context.Context, w http.ResponseWriter, probe string, code int, body any, status Status) {
	logger := log.WithComponentFromContext(ctx, probe)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, probe+".encode_error").Msg("failed to encode probe response")
		return
	}
	logger.Debug().
		Str(log.FieldEvent, probe+".checked").
		Str("status", string(status)).
		Int("code", code).
		Msg("probe answered")
}

// PoolSource is the part of the arbiter the pool checker reads.
type PoolSource interface {
	Snapshot() []resource.PoolStatus
}

// PoolChecker reports degraded while any non-empty pool is fully held.
// Exhaustion is a normal load condition, so it never fails readiness.
type PoolChecker struct {
	arb PoolSource
}

func NewPoolChecker(arb PoolSource) *PoolChecker {
	return &PoolChecker{arb: arb}
}

func (c *PoolChecker) Name() string { return "resources" }

func (c *PoolChecker) Check(_ context.Context) CheckResult {
	var usage, exhausted []string
	for _, p := range c.arb.Snapshot() {
		usage = append(usage, fmt.Sprintf("%s %d/%d", p.Type, p.InUse, p.Capacity))
		if p.Capacity > 0 && p.InUse >= p.Capacity {
			exhausted = append(exhausted, p.Type)
		}
	}
	res := CheckResult{Status: StatusHealthy, Message: strings.Join(usage, ", ")}
	if len(exhausted) > 0 {
		res.Status = StatusDegraded
		res.Error = "exhausted: " + strings.Join(exhausted, ",")
	}
	return res
}

// FuncChecker adapts a probe function. A nil error is healthy; an error
// maps to onError.
type FuncChecker struct {
	name    string
	onError Status
	check   func(ctx context.Context) error
}

func NewFuncChecker(name string, onError Status, check func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, onError: onError, check: check}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult {
	if err := c.check(ctx); err != nil {
		return CheckResult{Status: c.onError, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// Pinger is implemented by stores that can verify their backing storage.
type Pinger interface {
	Check(ctx context.Context) error
}

// NewStoreChecker checks the resume store. A broken store only loses
// resume positions, so failures degrade instead of failing readiness.
func NewStoreChecker(store any) Checker {
	check := func(context.Context) error { return nil }
	if p, ok := store.(Pinger); ok {
		check = p.Check
	}
	return NewFuncChecker("resume_store", StatusDegraded, check)
}
