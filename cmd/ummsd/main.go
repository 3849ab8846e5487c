// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/umms/internal/config"
	ulog "github.com/ManuGH/umms/internal/log"
	"github.com/ManuGH/umms/internal/version"

	_ "github.com/ManuGH/umms/internal/engine/stub"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "ummsd",
		Short:         "Media service daemon arbitrating playback hardware",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), resolveConfigPath(configPath))
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the daemon (default)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), resolveConfigPath(configPath))
			},
		},
		newConfigCmd(&configPath),
		newHealthcheckCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
			},
		},
	)
	return root
}

// resolveConfigPath returns the explicit path, else ${UMMS_DATA_DIR}/config.yaml
// when that file exists, else "" (env and defaults only).
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(os.Getenv(config.EnvPrefix + "DATA_DIR"))
	if dataDir == "" {
		dataDir = config.DefaultDataDir
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

func configureLogging(level, service string) {
	ulog.Configure(ulog.Config{
		Level:   level,
		Service: service,
		Version: version.Version,
	})
}
