// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/umms/internal/platform"
	"github.com/ManuGH/umms/internal/probe"
	"github.com/ManuGH/umms/internal/resource"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultDataDir         = "/var/lib/umms"
	DefaultLogLevel        = "info"
	DefaultService         = "ummsd"
	DefaultEngineBackend   = "auto"
	DefaultMaxPlayers      = 16
	DefaultResumeBackend   = "sqlite"
	DefaultDBusBus         = "system"
	DefaultDBusName        = "com.meego.UMMS"
	DefaultAPIListen       = "127.0.0.1:8089"
	DefaultRateLimit       = 120
	DefaultShutdownTimeout = 5 * time.Second
	DefaultOTLPEndpoint    = "localhost:4317"
)

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty configPath means
// defaults plus environment only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file the loader reads.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envStrings(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseStringList(key, defaultVal)
}

func (l *Loader) envInts(key string, defaultVal []int) []int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseIntList(key, defaultVal)
}

// Load loads configuration: defaults, then the strict YAML file, then
// environment overrides, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	caps := make(map[string]int, len(resource.Types))
	for t, n := range resource.DefaultCapacities() {
		caps[t.String()] = n
	}
	return AppConfig{
		DataDir: DefaultDataDir,
		Log: LogConfig{
			Level:   DefaultLogLevel,
			Service: DefaultService,
		},
		Platform: PlatformConfig{
			Variant:  platform.Generic.String(),
			Policies: map[string]AcquisitionConfig{},
		},
		Resources: ResourcesConfig{
			Capacities: caps,
			PlaneIDs:   []int{resource.PlaneUPPA, resource.PlaneUPPB},
		},
		Probe: ProbeConfig{
			LiveSchemes: append([]string(nil), probe.DefaultLiveSchemes...),
		},
		Engine: EngineConfig{
			Backend:    DefaultEngineBackend,
			MaxPlayers: DefaultMaxPlayers,
		},
		Resume: ResumeConfig{Backend: DefaultResumeBackend},
		DBus: DBusConfig{
			Enabled: true,
			Bus:     DefaultDBusBus,
			Name:    DefaultDBusName,
		},
		API: APIConfig{
			Enabled:         true,
			Listen:          DefaultAPIListen,
			RateLimit:       DefaultRateLimit,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Telemetry: TelemetryConfig{
			ServiceName:  DefaultService,
			Environment:  "device",
			ExporterType: "grpc",
			Endpoint:     DefaultOTLPEndpoint,
			SamplingRate: 1.0,
		},
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes YAML strictly: unknown keys and multiple documents are
// rejected.
func ParseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, ErrMultipleDocuments
	}
	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if f := src.Log; f != nil {
		setString(&dst.Log.Level, f.Level)
		setString(&dst.Log.Service, f.Service)
	}
	if f := src.Platform; f != nil {
		setString(&dst.Platform.Variant, f.Variant)
		if f.Policies != nil {
			if dst.Platform.Policies == nil {
				dst.Platform.Policies = map[string]AcquisitionConfig{}
			}
			maps.Copy(dst.Platform.Policies, f.Policies)
		}
	}
	if f := src.Resources; f != nil {
		maps.Copy(dst.Resources.Capacities, f.Capacities)
		if len(f.PlaneIDs) > 0 {
			dst.Resources.PlaneIDs = append([]int(nil), f.PlaneIDs...)
		}
	}
	if f := src.Probe; f != nil && f.LiveSchemes != nil {
		dst.Probe.LiveSchemes = append([]string(nil), f.LiveSchemes...)
	}
	if f := src.Engine; f != nil {
		setString(&dst.Engine.Backend, f.Backend)
		setPtr(&dst.Engine.MaxPlayers, f.MaxPlayers)
	}
	if f := src.Resume; f != nil {
		setString(&dst.Resume.Backend, f.Backend)
	}
	if f := src.DBus; f != nil {
		setPtr(&dst.DBus.Enabled, f.Enabled)
		setString(&dst.DBus.Bus, f.Bus)
		setString(&dst.DBus.Name, f.Name)
	}
	if f := src.API; f != nil {
		setPtr(&dst.API.Enabled, f.Enabled)
		setString(&dst.API.Listen, f.Listen)
		setPtr(&dst.API.RateLimit, f.RateLimit)
		if f.ShutdownTimeout != "" {
			d, err := time.ParseDuration(f.ShutdownTimeout)
			if err != nil {
				return fmt.Errorf("api.shutdown_timeout: %w", err)
			}
			dst.API.ShutdownTimeout = d
		}
	}
	if f := src.Telemetry; f != nil {
		setPtr(&dst.Telemetry.Enabled, f.Enabled)
		setString(&dst.Telemetry.ServiceName, f.ServiceName)
		setString(&dst.Telemetry.Environment, f.Environment)
		setString(&dst.Telemetry.ExporterType, f.ExporterType)
		setString(&dst.Telemetry.Endpoint, f.Endpoint)
		setPtr(&dst.Telemetry.SamplingRate, f.SamplingRate)
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvPrefix+"DATA_DIR", cfg.DataDir)

	cfg.Log.Level = l.envString(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString(EnvPrefix+"LOG_SERVICE", cfg.Log.Service)

	cfg.Platform.Variant = l.envString(EnvPrefix+"PLATFORM_VARIANT", cfg.Platform.Variant)

	// UMMS_CAPACITY_<TYPE>, e.g. UMMS_CAPACITY_HW_CLOCK=5
	for _, t := range resource.Types {
		name := t.String()
		cfg.Resources.Capacities[name] = l.envInt(EnvPrefix+"CAPACITY_"+strings.ToUpper(name), cfg.Resources.Capacities[name])
	}
	cfg.Resources.PlaneIDs = l.envInts(EnvPrefix+"PLANE_IDS", cfg.Resources.PlaneIDs)

	cfg.Probe.LiveSchemes = l.envStrings(EnvPrefix+"LIVE_SCHEMES", cfg.Probe.LiveSchemes)

	cfg.Engine.Backend = l.envString(EnvPrefix+"ENGINE_BACKEND", cfg.Engine.Backend)
	cfg.Engine.MaxPlayers = l.envInt(EnvPrefix+"MAX_PLAYERS", cfg.Engine.MaxPlayers)

	cfg.Resume.Backend = l.envString(EnvPrefix+"RESUME_BACKEND", cfg.Resume.Backend)

	cfg.DBus.Enabled = l.envBool(EnvPrefix+"DBUS_ENABLED", cfg.DBus.Enabled)
	cfg.DBus.Bus = l.envString(EnvPrefix+"DBUS_BUS", cfg.DBus.Bus)
	cfg.DBus.Name = l.envString(EnvPrefix+"DBUS_NAME", cfg.DBus.Name)

	cfg.API.Enabled = l.envBool(EnvPrefix+"API_ENABLED", cfg.API.Enabled)
	cfg.API.Listen = l.envString(EnvPrefix+"API_LISTEN", cfg.API.Listen)
	cfg.API.RateLimit = l.envInt(EnvPrefix+"API_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.ShutdownTimeout = l.envDuration(EnvPrefix+"API_SHUTDOWN_TIMEOUT", cfg.API.ShutdownTimeout)

	cfg.Telemetry.Enabled = l.envBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.ServiceName = l.envString(EnvPrefix+"TELEMETRY_SERVICE_NAME", cfg.Telemetry.ServiceName)
	cfg.Telemetry.Environment = l.envString(EnvPrefix+"TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.ExporterType = l.envString(EnvPrefix+"TELEMETRY_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = l.envString(EnvPrefix+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvPrefix+"TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
