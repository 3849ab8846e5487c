// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ManuGH/umms/internal/config"
	"github.com/ManuGH/umms/internal/engine"
	"github.com/ManuGH/umms/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment before any surface starts.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if cfg.Resume.Backend == "sqlite" {
		if err := checkDataDir(logger, cfg.DataDir); err != nil {
			return fmt.Errorf("data directory check failed: %w", err)
		}
	}

	if err := checkEngineBackend(logger, cfg.Engine.Backend); err != nil {
		return fmt.Errorf("engine check failed: %w", err)
	}

	if cfg.DBus.Enabled && cfg.DBus.Bus == "session" && os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		logger.Warn().Msg("DBUS_SESSION_BUS_ADDRESS is not set; connecting to the session bus will likely fail")
	}

	if !cfg.DBus.Enabled && !cfg.API.Enabled {
		logger.Warn().Msg("both DBus and API are disabled; players cannot be controlled")
	}

	tempDir := filepath.Clean(os.TempDir())
	dataDir := filepath.Clean(cfg.DataDir)
	if cfg.Resume.Backend == "sqlite" && tempDir != "." &&
		(dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("data_dir", cfg.DataDir).
			Msg("data directory is under temp; resume positions may be lost on reboot")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str(log.FieldPath, path).Msg("data directory is writable")
	return nil
}

// ResolveBackend maps "auto" to gst when compiled in, else the stub.
func ResolveBackend(name string) string {
	if name != "auto" {
		return name
	}
	if slices.Contains(engine.Backends(), "gst") {
		return "gst"
	}
	return "stub"
}

func checkEngineBackend(logger zerolog.Logger, name string) error {
	resolved := ResolveBackend(name)
	if !slices.Contains(engine.Backends(), resolved) {
		return fmt.Errorf("engine backend %q not compiled in (available: %v)", resolved, engine.Backends())
	}
	if resolved == "stub" {
		logger.Warn().Msg("using the stub engine; no media will be decoded")
	}
	logger.Info().Str("backend", resolved).Msg("engine backend available")
	return nil
}
