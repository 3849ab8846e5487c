// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/umms/internal/api"
	"github.com/ManuGH/umms/internal/bus"
	"github.com/ManuGH/umms/internal/config"
	"github.com/ManuGH/umms/internal/dbusapi"
	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/eventloop"
	"github.com/ManuGH/umms/internal/health"
	ulog "github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/manager"
	"github.com/ManuGH/umms/internal/resource"
	"github.com/ManuGH/umms/internal/resume"
	"github.com/ManuGH/umms/internal/telemetry"
	"github.com/ManuGH/umms/internal/version"
)

// loopDepth is the initial capacity of the event loop queue.
const loopDepth = 256

func serve(ctx context.Context, configPath string) error {
	configureLogging(config.DefaultLogLevel, config.DefaultService)
	logger := ulog.WithComponent("daemon")

	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().Err(err).
			Str(ulog.FieldEvent, "config.load_failed").
			Str("config_path", configPath).
			Msg("failed to load configuration")
		return err
	}
	configureLogging(cfg.Log.Level, cfg.Log.Service)
	if configPath != "" {
		logger.Info().Str(ulog.FieldEvent, "config.loaded").Str(ulog.FieldPath, configPath).Msg("loaded configuration from file")
	} else {
		logger.Info().Str(ulog.FieldEvent, "config.loaded").Str("source", "env+defaults").Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().Err(err).Str(ulog.FieldEvent, "startup.check_failed").Msg("startup checks failed")
		return err
	}

	backend := health.ResolveBackend(cfg.Engine.Backend)
	engines, err := engine.Open(backend)
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		Attributes:     telemetry.PlatformAttributes(policy.Variant().String(), backend),
	})
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	store, err := resume.NewStore(cfg.Resume.Backend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resume store: %w", err)
	}
	defer func() { _ = store.Close() }()

	arb := resource.NewArbiter(cfg.Capacities(), cfg.ArbiterOptions()...)

	signals := bus.NewMemoryBus(bus.DefaultBuffer)

	// The loop outlives the errgroup so players can be closed on it during
	// shutdown.
	loop := eventloop.New(loopDepth)
	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	mgr, err := manager.New(loop, manager.Config{
		Arbiter:     arb,
		Engines:     engines,
		Policy:      policy,
		Emitter:     bus.NewEmitter(signals, bus.DefaultPublishTimeout),
		Resume:      store,
		LiveSchemes: cfg.Probe.LiveSchemes,
		MaxPlayers:  cfg.Engine.MaxPlayers,
	})
	if err != nil {
		return err
	}

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewPoolChecker(arb))
	hm.RegisterChecker(health.NewStoreChecker(store))

	g, gctx := errgroup.WithContext(ctx)

	var svc *dbusapi.Service
	if cfg.DBus.Enabled {
		conn, err := dbusapi.Connect(ctx, cfg.DBus.Bus)
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()

		svc = dbusapi.New(conn, mgr, dbusapi.WithName(cfg.DBus.Name))
		if err := svc.Start(gctx); err != nil {
			return err
		}
		hm.RegisterChecker(health.NewFuncChecker("dbus", health.StatusUnhealthy, svc.Ready))

		sub, err := signals.Subscribe(gctx, bus.TopicSignals)
		if err != nil {
			return err
		}
		g.Go(func() error { return svc.Run(gctx, sub) })
	}

	if cfg.API.Enabled {
		srv := api.New(api.Config{
			Listen:          cfg.API.Listen,
			RateLimit:       cfg.API.RateLimit,
			ShutdownTimeout: cfg.API.ShutdownTimeout,
			TracingService:  tracingService(cfg),
		}, mgr, arb, hm, signals)
		g.Go(func() error { return srv.Run(gctx) })
	}

	holder := config.NewConfigHolder(cfg, loader)
	reloads := make(chan config.AppConfig, 1)
	holder.RegisterListener(reloads)
	if err := holder.StartWatcher(gctx); err != nil {
		logger.Warn().Err(err).Msg("config watcher unavailable; reload with SIGHUP only")
	}
	g.Go(func() error { return applyReloads(gctx, reloads, mgr) })
	g.Go(func() error { return reloadOnHangup(gctx, holder) })

	logger.Info().
		Str(ulog.FieldEvent, "daemon.started").
		Str("engine", backend).
		Str("variant", policy.Variant().String()).
		Bool("dbus", cfg.DBus.Enabled).
		Bool("api", cfg.API.Enabled).
		Msg("ummsd started")

	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.API.ShutdownTimeout)
	defer cancel()
	var errs []error
	if svc != nil {
		if err := svc.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("dbus close: %w", err))
		}
	}
	if err := mgr.Close(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("players close: %w", err))
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		errs = append(errs, runErr)
	}
	logger.Info().Str(ulog.FieldEvent, "daemon.stopped").Msg("ummsd stopped")
	return errors.Join(errs...)
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return cfg.Telemetry.ServiceName
}

// applyReloads applies the hot-reloadable sections of a new config: the
// log level and the platform policy of new players.
func applyReloads(ctx context.Context, reloads <-chan config.AppConfig, mgr *manager.Manager) error {
	logger := ulog.WithComponent("daemon")
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-reloads:
			if err := ulog.SetLevel(cfg.Log.Level); err != nil {
				logger.Warn().Err(err).Msg("ignoring log level from reloaded config")
			}
			p, err := cfg.Policy()
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring platform policy from reloaded config")
				continue
			}
			mgr.SetPolicy(p)
		}
	}
}

func reloadOnHangup(ctx context.Context, holder *config.ConfigHolder) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			_ = holder.Reload(ctx)
		}
	}
}
