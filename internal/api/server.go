// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the HTTP operations surface of ummsd: probes, metrics,
// pool and player snapshots, and a WebSocket stream of session signals.
// Player control stays on the DBus.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ManuGH/umms/internal/bus"
	"github.com/ManuGH/umms/internal/health"
	"github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/manager"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Players is the read side of the player registry.
type Players interface {
	List(ctx context.Context) ([]manager.Info, error)
	Get(ctx context.Context, id string) (manager.Info, error)
}

// Pools reports resource pool usage.
type Pools interface {
	Snapshot() []resource.PoolStatus
}

// Config configures the server.
type Config struct {
	Listen string
	// RateLimit is requests per minute per client IP on /api/v1. 0 disables.
	RateLimit       int
	ShutdownTimeout time.Duration
	// TracingService names the tracer; empty disables request spans.
	TracingService string
}

// Server serves the operations API.
type Server struct {
	cfg      Config
	players  Players
	pools    Pools
	health   *health.Manager
	signals  bus.Bus
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	handler  http.Handler
}

// New builds the server and its routes.
func New(cfg Config, players Players, pools Pools, hm *health.Manager, signals bus.Bus) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		players: players,
		pools:   pools,
		health:  hm,
		signals: signals,
		logger:  log.WithComponent("api"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(observe(s.cfg.TracingService))

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(rateLimit(s.cfg.RateLimit, time.Minute))
		}
		r.Get("/resources", s.handleResources)
		r.Get("/players", s.handlePlayers)
		r.Get("/players/{id}", s.handlePlayer)
		r.Get("/signals", s.handleSignals)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w)
	})
	return r
}

// Run listens on cfg.Listen and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
// within cfg.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info().Str(log.FieldEvent, "api.listening").Str("addr", ln.Addr().String()).Msg("api server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	<-errCh
	s.logger.Info().Str(log.FieldEvent, "api.stopped").Msg("api server stopped")
	return nil
}
