//go:build gst

package main

import _ "github.com/ManuGH/umms/internal/engine/gst"
