// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the effective daemon configuration after defaults, the YAML
// file and environment overrides have been applied.
type AppConfig struct {
	Version   string
	DataDir   string
	Log       LogConfig
	Platform  PlatformConfig
	Resources ResourcesConfig
	Probe     ProbeConfig
	Engine    EngineConfig
	Resume    ResumeConfig
	DBus      DBusConfig
	API       APIConfig
	Telemetry TelemetryConfig
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level   string
	Service string
}

// PlatformConfig selects the hardware variant and the acquisition matrix
// per variant. Variants missing from Policies use the built-in rule.
type PlatformConfig struct {
	Variant  string
	Policies map[string]AcquisitionConfig
}

// AcquisitionConfig overrides which units one activation requests.
// Nil fields keep the variant's built-in value.
type AcquisitionConfig struct {
	Clock         string `yaml:"clock,omitempty"`
	VideoDecoders *bool  `yaml:"video_decoders,omitempty"`
	Tuner         *bool  `yaml:"tuner,omitempty"`
}

// ResourcesConfig sizes the arbiter pools. Capacities is keyed by resource
// type name (plane, hw_video_decoder, hw_clock, tuner).
type ResourcesConfig struct {
	Capacities map[string]int
	PlaneIDs   []int
}

// ProbeConfig controls source classification.
type ProbeConfig struct {
	LiveSchemes []string
}

// EngineConfig selects the pipeline backend.
type EngineConfig struct {
	// Backend names a registered engine; "auto" prefers gst when compiled in.
	Backend    string
	MaxPlayers int
}

// ResumeConfig selects the resume store.
type ResumeConfig struct {
	Backend string
}

// DBusConfig controls the client bus surface.
type DBusConfig struct {
	Enabled bool
	// Bus is "system" or "session".
	Bus  string
	Name string
}

// APIConfig controls the HTTP operations surface.
type APIConfig struct {
	Enabled bool
	Listen  string
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit       int
	ShutdownTimeout time.Duration
}

// TelemetryConfig mirrors telemetry.Config.
type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	ExporterType string
	Endpoint     string
	SamplingRate float64
}

// FileConfig is the on-disk YAML schema. Pointer fields distinguish
// "absent" from the zero value so defaults survive partial files.
type FileConfig struct {
	Version   string               `yaml:"version,omitempty"`
	DataDir   string               `yaml:"data_dir,omitempty"`
	Log       *FileLogConfig       `yaml:"log,omitempty"`
	Platform  *FilePlatformConfig  `yaml:"platform,omitempty"`
	Resources *FileResourcesConfig `yaml:"resources,omitempty"`
	Probe     *FileProbeConfig     `yaml:"probe,omitempty"`
	Engine    *FileEngineConfig    `yaml:"engine,omitempty"`
	Resume    *FileResumeConfig    `yaml:"resume,omitempty"`
	DBus      *FileDBusConfig      `yaml:"dbus,omitempty"`
	API       *FileAPIConfig       `yaml:"api,omitempty"`
	Telemetry *FileTelemetryConfig `yaml:"telemetry,omitempty"`
}

type FileLogConfig struct {
	Level   string `yaml:"level,omitempty"`
	Service string `yaml:"service,omitempty"`
}

type FilePlatformConfig struct {
	Variant  string                       `yaml:"variant,omitempty"`
	Policies map[string]AcquisitionConfig `yaml:"policies,omitempty"`
}

type FileResourcesConfig struct {
	Capacities map[string]int `yaml:"capacities,omitempty"`
	PlaneIDs   []int          `yaml:"plane_ids,omitempty"`
}

type FileProbeConfig struct {
	LiveSchemes []string `yaml:"live_schemes,omitempty"`
}

type FileEngineConfig struct {
	Backend    string `yaml:"backend,omitempty"`
	MaxPlayers *int   `yaml:"max_players,omitempty"`
}

type FileResumeConfig struct {
	Backend string `yaml:"backend,omitempty"`
}

type FileDBusConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Bus     string `yaml:"bus,omitempty"`
	Name    string `yaml:"name,omitempty"`
}

type FileAPIConfig struct {
	Enabled         *bool  `yaml:"enabled,omitempty"`
	Listen          string `yaml:"listen,omitempty"`
	RateLimit       *int   `yaml:"rate_limit,omitempty"`
	ShutdownTimeout string `yaml:"shutdown_timeout,omitempty"`
}

type FileTelemetryConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	ServiceName  string   `yaml:"service_name,omitempty"`
	Environment  string   `yaml:"environment,omitempty"`
	ExporterType string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"sampling_rate,omitempty"`
}
