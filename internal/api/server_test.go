// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/umms/internal/bus"
	"github.com/ManuGH/umms/internal/health"
	"github.com/ManuGH/umms/internal/manager"
	"github.com/ManuGH/umms/internal/metrics"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/ManuGH/umms/internal/session"
	"github.com/gorilla/websocket"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayers struct {
	infos []manager.Info
	err   error
}

func (f *fakePlayers) List(context.Context) ([]manager.Info, error) {
	return f.infos, f.err
}

func (f *fakePlayers) Get(_ context.Context, id string) (manager.Info, error) {
	for _, info := range f.infos {
		if info.ID == id {
			return info, nil
		}
	}
	return manager.Info{}, manager.ErrNotFound
}

type fixture struct {
	srv     *Server
	bus     *bus.MemoryBus
	arb     *resource.Arbiter
	players *fakePlayers
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		bus: bus.NewMemoryBus(bus.DefaultBuffer),
		arb: resource.NewArbiter(resource.DefaultCapacities()),
		players: &fakePlayers{infos: []manager.Info{
			{ID: "p1", URI: "file:///a.ts", State: session.StatePlaying},
			{ID: "p2", State: session.StateNull},
		}},
	}
	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewPoolChecker(f.arb))
	f.srv = New(cfg, f.players, f.arb, hm, f.bus)
	return f
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.10:4000"
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func counterValue(t *testing.T, route, status string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, metrics.HTTPRequestsTotal.WithLabelValues(route, status).Write(m))
	return m.GetCounter().GetValue()
}

func TestProbes(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.get(t, "/healthz?verbose=true")
	require.Equal(t, http.StatusOK, rec.Code)
	var hr health.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hr))
	assert.Equal(t, health.StatusHealthy, hr.Status)
	assert.Contains(t, hr.Checks, "resources")

	rec = f.get(t, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "umms_http_requests_total")
}

func TestResources(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.arb.Request(resource.Request{Type: resource.Plane, Preference: resource.NoPreference})
	require.NoError(t, err)

	rec := f.get(t, "/api/v1/resources")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	var body struct {
		Pools []resource.PoolStatus `json:"pools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Pools, len(resource.Types))
	assert.Equal(t, resource.Plane.String(), body.Pools[0].Type)
	assert.Equal(t, 1, body.Pools[0].InUse)
}

func TestPlayers(t *testing.T) {
	f := newFixture(t, Config{})
	before := counterValue(t, "/api/v1/players", "200")

	rec := f.get(t, "/api/v1/players")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Players []manager.Info `json:"players"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Players, 2)
	assert.Equal(t, before+1, counterValue(t, "/api/v1/players", "200"))

	rec = f.get(t, "/api/v1/players/p1")
	require.Equal(t, http.StatusOK, rec.Code)
	var info manager.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "file:///a.ts", info.URI)
	assert.Equal(t, session.StatePlaying, info.State)

	rec = f.get(t, "/api/v1/players/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)

	f.players.err = context.DeadlineExceeded
	rec = f.get(t, "/api/v1/players")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	f := newFixture(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/resources", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Config{RateLimit: 2})

	require.Equal(t, http.StatusOK, f.get(t, "/api/v1/resources").Code)
	require.Equal(t, http.StatusOK, f.get(t, "/api/v1/resources").Code)
	rec := f.get(t, "/api/v1/resources")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// probes are never limited
	require.Equal(t, http.StatusOK, f.get(t, "/healthz").Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.get(t, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignalStream(t *testing.T) {
	f := newFixture(t, Config{})
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/signals?session=p1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool {
		return f.bus.Subscribers(bus.TopicSignals) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, f.bus.Publish(ctx, bus.TopicSignals, session.Signal{SessionID: "p2", Kind: session.SignalEOF}))
	require.NoError(t, f.bus.Publish(ctx, bus.TopicSignals, session.Signal{
		SessionID: "p1",
		Kind:      session.SignalPlayerStateChanged,
		OldState:  session.StatePaused,
		NewState:  session.StatePlaying,
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var sig session.Signal
	require.NoError(t, conn.ReadJSON(&sig))
	assert.Equal(t, "p1", sig.SessionID)
	assert.Equal(t, session.SignalPlayerStateChanged, sig.Kind)
	assert.Equal(t, session.StatePlaying, sig.NewState)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return f.bus.Subscribers(bus.TopicSignals) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeShutsDownWithContext(t *testing.T) {
	f := newFixture(t, Config{ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
