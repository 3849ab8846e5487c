// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("UMMS_T_STR", "value")
	t.Setenv("UMMS_T_EMPTY", "")
	t.Setenv("UMMS_T_INT", "42")
	t.Setenv("UMMS_T_BAD_INT", "4x2")
	t.Setenv("UMMS_T_BOOL", "YES")
	t.Setenv("UMMS_T_BAD_BOOL", "maybe")
	t.Setenv("UMMS_T_DUR", "150ms")
	t.Setenv("UMMS_T_FLOAT", "0.5")
	t.Setenv("UMMS_T_LIST", " a, ,b ")
	t.Setenv("UMMS_T_INTS", "3,1")
	t.Setenv("UMMS_T_BAD_INTS", "3,x")

	require.Equal(t, "value", ParseString("UMMS_T_STR", "d"))
	require.Equal(t, "d", ParseString("UMMS_T_EMPTY", "d"))
	require.Equal(t, "d", ParseString("UMMS_T_UNSET", "d"))
	require.Equal(t, 42, ParseInt("UMMS_T_INT", 1))
	require.Equal(t, 1, ParseInt("UMMS_T_BAD_INT", 1))
	require.True(t, ParseBool("UMMS_T_BOOL", false))
	require.True(t, ParseBool("UMMS_T_BAD_BOOL", true))
	require.Equal(t, 150*time.Millisecond, ParseDuration("UMMS_T_DUR", time.Second))
	require.InDelta(t, 0.5, ParseFloat("UMMS_T_FLOAT", 1), 1e-9)
	require.Equal(t, []string{"a", "b"}, ParseStringList("UMMS_T_LIST", nil))
	require.Equal(t, []int{3, 1}, ParseIntList("UMMS_T_INTS", nil))
	require.Equal(t, []int{0}, ParseIntList("UMMS_T_BAD_INTS", []int{0}))
}
