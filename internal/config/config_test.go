package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/trace-semantics/internal/convergence"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config.Convergence.Params() != convergence.DefaultParams() {
		t.Errorf("expected default convergence params, got %+v", config.Convergence)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
	if config.Logging.FindingsDir != "" {
		t.Errorf("expected empty FindingsDir, got '%s'", config.Logging.FindingsDir)
	}
	if config.Telemetry.Enabled {
		t.Error("expected Telemetry.Enabled to be false by default")
	}
	if config.Analysis.Framework != "openmm" {
		t.Errorf("expected Framework 'openmm', got '%s'", config.Analysis.Framework)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
convergence:
  window: 6
  rel_delta_threshold: 0.001
telemetry:
  enabled: true
  service_name: lelir-ci
analysis:
  framework: VASP
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Convergence.Window != 6 || config.Convergence.RelDeltaThreshold != 0.001 {
		t.Errorf("expected window 6 and threshold 0.001, got %+v", config.Convergence)
	}
	if !config.Telemetry.Enabled || config.Telemetry.ServiceName != "lelir-ci" {
		t.Errorf("expected enabled telemetry for lelir-ci, got %+v", config.Telemetry)
	}
	if config.Logging.Level != "info" {
		t.Errorf("unset sections should keep defaults, got Logging.Level '%s'", config.Logging.Level)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `
logging:
  level: debug
  findings_dir: ${LELIR_TEST_HOME}/findings
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("LELIR_TEST_HOME", "/srv/lelir")

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.Logging.FindingsDir != "/srv/lelir/findings" {
		t.Errorf("expected FindingsDir '/srv/lelir/findings', got '%s'", config.Logging.FindingsDir)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LELIR_CONVERGENCE_WINDOW", "8")
	t.Setenv("LELIR_REL_DELTA_THRESHOLD", "0.01")
	t.Setenv("LELIR_LOG_LEVEL", "trace")
	t.Setenv("LELIR_FINDINGS_DIR", "/tmp/findings")
	t.Setenv("LELIR_TELEMETRY_ENABLED", "1")
	t.Setenv("LELIR_FRAMEWORK", "gromacs")

	config := Default()
	applyEnvOverrides(config)

	if config.Convergence.Window != 8 || config.Convergence.RelDeltaThreshold != 0.01 {
		t.Errorf("expected window 8 and threshold 0.01, got %+v", config.Convergence)
	}
	if config.Logging.Level != "trace" || config.Logging.FindingsDir != "/tmp/findings" {
		t.Errorf("expected trace logging to /tmp/findings, got %+v", config.Logging)
	}
	if !config.Telemetry.Enabled {
		t.Error("expected Telemetry.Enabled to be true")
	}
	if config.Analysis.Framework != "gromacs" {
		t.Errorf("expected Framework 'gromacs', got '%s'", config.Analysis.Framework)
	}
}

func TestEnvOverrides_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("LELIR_CONVERGENCE_WINDOW", "four")
	t.Setenv("LELIR_REL_DELTA_THRESHOLD", "small")

	config := Default()
	applyEnvOverrides(config)

	if config.Convergence.Params() != convergence.DefaultParams() {
		t.Errorf("malformed overrides should be ignored, got %+v", config.Convergence)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, false},
		{"debug log level", func(c *Config) { c.Logging.Level = "debug" }, false},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"window too small", func(c *Config) { c.Convergence.Window = 3 }, true},
		{"zero threshold", func(c *Config) { c.Convergence.RelDeltaThreshold = 0 }, true},
		{"infinite threshold", func(c *Config) { c.Convergence.RelDeltaThreshold = math.Inf(1) }, true},
		{"framework case-insensitive", func(c *Config) { c.Analysis.Framework = "OpenMM" }, false},
		{"unknown framework", func(c *Config) { c.Analysis.Framework = "lammps" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := Default()
	want.Convergence.Window = 5
	want.Logging.Level = "debug"

	if err := want.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file should exist: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}

	got, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	invalidYAML := `
convergence:
  window: [invalid yaml
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
