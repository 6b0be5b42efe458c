// Package config loads and validates the engine configuration file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/OpenTasmania/oj-server-sub001/pkg/telemetry"
)

// Config is the top-level engine configuration.
type Config struct {
	// StatePath is the completion ledger location.
	StatePath string `yaml:"state_path" validate:"required"`

	// SourceRoot is the directory whose Go sources feed the
	// implementation fingerprint. Empty falls back to build info.
	SourceRoot string `yaml:"source_root"`

	// HistoryDB is the SQLite run-history database location. Empty
	// disables history recording.
	HistoryDB string `yaml:"history_db"`

	// ContinueOnError keeps configure runs going past a failed step.
	ContinueOnError bool `yaml:"continue_on_error"`

	// Features are the feature flags seeding every run's execution
	// context. Optional resources gate on these.
	Features map[string]bool `yaml:"features"`

	// Provision configures how component bodies and provisioning hooks
	// reach the system.
	Provision ProvisionConfig `yaml:"provision"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing"`
}

// ProvisionConfig locates the per-component provisioning scripts and the
// schema and manifest directories used by provisioning hooks.
type ProvisionConfig struct {
	ScriptsDir  string `yaml:"scripts_dir" validate:"required"`
	Database    string `yaml:"database" validate:"required"`
	SchemaDir   string `yaml:"schema_dir"`
	ManifestDir string `yaml:"manifest_dir"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
	Output string `yaml:"output"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address" validate:"required_if=Enabled true"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter" validate:"omitempty,oneof=otlp stdout none"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// Default returns the default configuration. Paths live under
// /var/lib/ojserver by convention.
func Default() *Config {
	return &Config{
		StatePath:  "/var/lib/ojserver/state.ledger",
		HistoryDB:  "/var/lib/ojserver/history.db",
		SourceRoot: "",
		Features:   make(map[string]bool),
		Provision: ProvisionConfig{
			ScriptsDir:  "/usr/local/share/ojserver/scripts",
			Database:    "gis",
			SchemaDir:   "/usr/local/share/ojserver/schema",
			ManifestDir: "/var/lib/ojserver/manifests",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			ListenAddress: ":9464",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			SamplingRate: 1.0,
		},
	}
}

// Load reads the YAML configuration at path, overlaying the defaults, and
// validates the result. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			if err := dec.Decode(cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.StatePath != "" && !filepath.IsAbs(c.StatePath) {
		abs, err := filepath.Abs(c.StatePath)
		if err != nil {
			return fmt.Errorf("resolve state path: %w", err)
		}
		c.StatePath = abs
	}
	return nil
}

// TelemetryConfig maps the file configuration onto the telemetry package's
// configuration, overlaying its defaults.
func (c *Config) TelemetryConfig(serviceVersion string) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = serviceVersion
	if c.Logging.Level != "" {
		tc.Logging.Level = c.Logging.Level
	}
	if c.Logging.Format != "" {
		tc.Logging.Format = c.Logging.Format
	}
	if c.Logging.Output != "" {
		tc.Logging.Output = c.Logging.Output
	}
	tc.Metrics.Enabled = c.Metrics.Enabled
	if c.Metrics.ListenAddress != "" {
		tc.Metrics.ListenAddress = c.Metrics.ListenAddress
	}
	tc.Tracing.Enabled = c.Tracing.Enabled
	if c.Tracing.Exporter != "" {
		tc.Tracing.Exporter = c.Tracing.Exporter
	}
	tc.Tracing.Endpoint = c.Tracing.Endpoint
	if c.Tracing.SamplingRate > 0 {
		tc.Tracing.SamplingRate = c.Tracing.SamplingRate
	}
	return tc
}
