// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ManuGH/umms/internal/config"
	_ "github.com/ManuGH/umms/internal/engine/stub"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/ManuGH/umms/internal/resume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticChecker struct {
	name   string
	status Status
}

func (c staticChecker) Name() string { return c.name }

func (c staticChecker) Check(context.Context) CheckResult { return CheckResult{Status: c.status} }

func managerWith(statuses ...Status) *Manager {
	m := NewManager("v0.1.0")
	for i, s := range statuses {
		m.RegisterChecker(staticChecker{name: string(rune('a' + i)), status: s})
	}
	return m
}

func TestHealthOnlyEvaluatesWhenVerbose(t *testing.T) {
	m := managerWith(StatusHealthy, StatusDegraded)

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v0.1.0", resp.Version)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusDegraded, resp.Checks["b"].Status)
}

func TestReadyTakesWorstStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		ready    bool
		want     Status
	}{
		{"no checkers", nil, true, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, true, StatusHealthy},
		{"degraded stays ready", []Status{StatusHealthy, StatusDegraded}, true, StatusDegraded},
		{"unhealthy wins", []Status{StatusUnhealthy, StatusDegraded}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := managerWith(tt.statuses...).Ready(context.Background())
			assert.Equal(t, tt.ready, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.statuses))
		})
	}
}

func TestServeHealthAlwaysOK(t *testing.T) {
	m := managerWith(StatusUnhealthy)

	w := httptest.NewRecorder()
	m.ServeHealth(w, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Len(t, resp.Checks, 1)
}

func TestServeReadyStatusCodes(t *testing.T) {
	for status, code := range map[Status]int{
		StatusHealthy:   http.StatusOK,
		StatusDegraded:  http.StatusOK,
		StatusUnhealthy: http.StatusServiceUnavailable,
	} {
		t.Run(string(status), func(t *testing.T) {
			w := httptest.NewRecorder()
			managerWith(status).ServeReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, code, w.Code)

			var resp ReadinessResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, code == http.StatusOK, resp.Ready)
		})
	}
}

type failingWriter struct{ header http.Header }

func (w *failingWriter) Header() http.Header       { return w.header }
func (w *failingWriter) Write([]byte) (int, error) { return 0, assert.AnError }
func (w *failingWriter) WriteHeader(int)           {}

func TestServeSurvivesWriteFailure(t *testing.T) {
	m := managerWith(StatusHealthy)
	assert.NotPanics(t, func() {
		m.ServeHealth(&failingWriter{header: http.Header{}}, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		m.ServeReady(&failingWriter{header: http.Header{}}, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	})
}

func TestPoolChecker(t *testing.T) {
	arb := resource.NewArbiter(resource.Capacities{resource.Plane: 1, resource.HwClock: 2})
	checker := NewPoolChecker(arb)
	assert.Equal(t, "resources", checker.Name())

	// The empty tuner pool never counts as exhausted.
	result := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
	assert.Contains(t, result.Message, "plane 0/1")

	plane, err := arb.Request(resource.Request{Type: resource.Plane, Preference: resource.NoPreference})
	require.NoError(t, err)

	result = checker.Check(context.Background())
	assert.Equal(t, StatusDegraded, result.Status)
	assert.Equal(t, "exhausted: plane", result.Error)
	assert.Contains(t, result.Message, "plane 1/1")

	arb.Release(plane)
	assert.Equal(t, StatusHealthy, checker.Check(context.Background()).Status)
}

func TestFuncChecker(t *testing.T) {
	checker := NewFuncChecker("dbus", StatusUnhealthy, func(context.Context) error {
		return errors.New("not connected")
	})
	assert.Equal(t, "dbus", checker.Name())

	result := checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, result.Status)
	assert.Equal(t, "not connected", result.Error)

	ok := NewFuncChecker("dbus", StatusUnhealthy, func(context.Context) error { return nil })
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)
}

func TestStoreChecker(t *testing.T) {
	store, err := resume.NewSqliteStore(filepath.Join(t.TempDir(), "resume.sqlite"))
	require.NoError(t, err)

	checker := NewStoreChecker(store)
	assert.Equal(t, "resume_store", checker.Name())
	assert.Equal(t, StatusHealthy, checker.Check(context.Background()).Status)

	require.NoError(t, store.Close())
	assert.Equal(t, StatusDegraded, checker.Check(context.Background()).Status)

	// Stores without a Check method are assumed healthy.
	mem := NewStoreChecker(resume.NewMemoryStore())
	assert.Equal(t, StatusHealthy, mem.Check(context.Background()).Status)
}

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.Engine.Backend = "auto"
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))

	cfg.Engine.Backend = "vaapi"
	require.ErrorContains(t, PerformStartupChecks(context.Background(), cfg), "not compiled in")

	cfg.Engine.Backend = "stub"
	cfg.DataDir = filepath.Join(t.TempDir(), "missing")
	require.ErrorContains(t, PerformStartupChecks(context.Background(), cfg), "does not exist")

	cfg.Resume.Backend = "memory"
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestResolveBackend(t *testing.T) {
	assert.Contains(t, []string{"stub", "gst"}, ResolveBackend("auto"))
	assert.Equal(t, "gst", ResolveBackend("gst"))
}
