// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package probe

import "strings"

// DefaultLiveSchemes are the URI schemes treated as live (non-seekable,
// no fixed duration) sources.
var DefaultLiveSchemes = []string{
	"mms", "mmsh", "mmsu", "mmst",
	"rtsp", "rtp", "udp",
	"fd", "myth", "ssh", "ftp", "sftp",
	"dvb", "live",
}

// IsLive reports whether uri starts with one of the schemes followed by
// "://". Matching is case-insensitive. A nil list uses DefaultLiveSchemes.
func IsLive(uri string, schemes []string) bool {
	if schemes == nil {
		schemes = DefaultLiveSchemes
	}
	i := strings.Index(uri, "://")
	if i <= 0 {
		return false
	}
	scheme := uri[:i]
	for _, s := range schemes {
		if strings.EqualFold(scheme, s) {
			return true
		}
	}
	return false
}
