// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/umms/internal/config"
	"github.com/ManuGH/umms/internal/version"
)

func newConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := resolveConfigPath(*configPath)
			if _, err := config.NewLoader(path, version.Version).Load(); err != nil {
				return fmt.Errorf("configuration error in %s: %w", describePath(path), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", describePath(path))
			return nil
		},
	})

	var format, output string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration (defaults, file and environment merged)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader(resolveConfigPath(*configPath), version.Version).Load()
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := encodeConfig(&buf, format, cfg.File()); err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			// Readers of output never observe a partially written file.
			if err := renameio.WriteFile(output, buf.Bytes(), 0o600); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	dump.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	dump.Flags().StringVarP(&output, "output", "o", "", "write to this file atomically instead of stdout")
	cmd.AddCommand(dump)

	return cmd
}

func encodeConfig(w io.Writer, format string, cfg config.FileConfig) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

func describePath(path string) string {
	if path == "" {
		return "environment configuration"
	}
	return path
}
