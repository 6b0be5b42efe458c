package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ojserver.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.StatePath == "" {
		t.Error("defaults must include a state path")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default info level, got %q", cfg.Logging.Level)
	}
	if cfg.Provision.Database != "gis" {
		t.Errorf("expected default database gis, got %q", cfg.Provision.Database)
	}
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
state_path: /tmp/oj/state.ledger
continue_on_error: true
features:
  gtfs_shapes: true
logging:
  level: debug
provision:
  scripts_dir: /opt/oj/scripts
  database: gis
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.StatePath != "/tmp/oj/state.ledger" {
		t.Errorf("expected state path overridden, got %q", cfg.StatePath)
	}
	if !cfg.ContinueOnError {
		t.Error("expected continue_on_error honored")
	}
	if !cfg.Features["gtfs_shapes"] {
		t.Error("expected feature flag loaded")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Metrics.ListenAddress != ":9464" {
		t.Errorf("expected default metrics address preserved, got %q", cfg.Metrics.ListenAddress)
	}
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "state_pth: /oops\n")
	if _, err := Load(path); err == nil {
		t.Error("expected misspelled field to be rejected")
	}
}

func TestLoad_RejectsInvalidLevel(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: loud\n")
	if _, err := Load(path); err == nil {
		t.Error("expected invalid log level to be rejected")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected missing file to error")
	}
}

func TestValidate_RelativeStatePathResolved(t *testing.T) {
	cfg := Default()
	cfg.StatePath = "state.ledger"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !filepath.IsAbs(cfg.StatePath) {
		t.Errorf("expected absolute state path, got %q", cfg.StatePath)
	}
}

func TestTelemetryConfig_Mapping(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"
	cfg.Metrics.Enabled = true
	cfg.Metrics.ListenAddress = ":9999"
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.Endpoint = "collector:4317"
	cfg.Tracing.SamplingRate = 0.25

	tc := cfg.TelemetryConfig("1.2.3")
	if tc.ServiceVersion != "1.2.3" {
		t.Errorf("expected service version propagated, got %q", tc.ServiceVersion)
	}
	if tc.Logging.Level != "warn" || tc.Logging.Format != "json" {
		t.Errorf("logging not mapped: %+v", tc.Logging)
	}
	if !tc.Metrics.Enabled || tc.Metrics.ListenAddress != ":9999" {
		t.Errorf("metrics not mapped: %+v", tc.Metrics)
	}
	if !tc.Tracing.Enabled || tc.Tracing.Exporter != "otlp" || tc.Tracing.Endpoint != "collector:4317" {
		t.Errorf("tracing not mapped: %+v", tc.Tracing)
	}
	if tc.Tracing.SamplingRate != 0.25 {
		t.Errorf("sampling rate not mapped: %v", tc.Tracing.SamplingRate)
	}
	// Telemetry internals the file does not expose keep their defaults.
	if tc.Metrics.Namespace == "" {
		t.Error("expected default metrics namespace preserved")
	}
}
