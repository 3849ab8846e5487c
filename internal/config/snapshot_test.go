// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.yaml")
	require.NoError(t, os.WriteFile(src, []byte(`
data_dir: `+dir+`
platform:
  variant: tv
  policies:
    tv:
      clock: never
resources:
  capacities:
    plane: 3
  plane_ids: [4, 5, 6]
engine:
  max_players: 2
resume:
  backend: memory
api:
  rate_limit: 30
  shutdown_timeout: 2s
`), 0o600))

	want, err := NewLoader(src, "test").Load()
	require.NoError(t, err)

	out, err := yaml.Marshal(want.File())
	require.NoError(t, err)
	dumped := filepath.Join(dir, "out.yaml")
	require.NoError(t, os.WriteFile(dumped, out, 0o600))

	got, err := NewLoader(dumped, "test").Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("reloaded dump differs (-want +got):\n%s", diff)
	}
}
