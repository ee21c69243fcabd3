// Package config provides unified configuration loading for lelir.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/trace-semantics/internal/constants"
	"github.com/nvandessel/trace-semantics/internal/convergence"
	"github.com/nvandessel/trace-semantics/internal/telemetry"
)

// Config contains all lelir configuration settings.
type Config struct {
	// Convergence tunes the derived convergence summaries.
	Convergence ConvergenceConfig `json:"convergence" yaml:"convergence"`

	// Logging contains settings for operational and findings logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Telemetry enables OpenTelemetry spans and counters.
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`

	// Analysis contains defaults for the analyze command.
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
}

// ConvergenceConfig mirrors convergence.Params.
type ConvergenceConfig struct {
	// Window is the number of most recent samples a summary is derived from.
	Window int `json:"window" yaml:"window"`

	// RelDeltaThreshold separates converged from stalled series.
	RelDeltaThreshold float64 `json:"rel_delta_threshold" yaml:"rel_delta_threshold"`
}

// Params converts the section to derivation parameters.
func (c ConvergenceConfig) Params() convergence.Params {
	return convergence.Params{Window: c.Window, RelDeltaThreshold: c.RelDeltaThreshold}
}

// LoggingConfig configures lelir's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables findings logging to <findings_dir>/findings.jsonl.
	Level string `json:"level" yaml:"level"`

	// FindingsDir holds the findings trace. Supports ${VAR} syntax.
	FindingsDir string `json:"findings_dir,omitempty" yaml:"findings_dir,omitempty"`
}

// AnalysisConfig configures the analysis runner.
type AnalysisConfig struct {
	// Framework selects the convergence classification table when a log
	// does not come from an adapter.
	Framework string `json:"framework" yaml:"framework"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Convergence: ConvergenceConfig{
			Window:            constants.DefaultConvergenceWindow,
			RelDeltaThreshold: constants.DefaultRelDeltaThreshold,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: telemetry.Config{
			ServiceName: telemetry.DefaultServiceName,
		},
		Analysis: AnalysisConfig{
			Framework: string(constants.FrameworkOpenMM),
		},
	}
}

// Dir returns ~/.lelir.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".lelir"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.lelir/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	if dir, err := Dir(); err == nil {
		configPath := filepath.Join(dir, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	config.Logging.FindingsDir = expandEnvVars(config.Logging.FindingsDir)
	return config, nil
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Convergence.Params().Validate(); err != nil {
		return err
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if _, ok := constants.ParseFramework(c.Analysis.Framework); !ok {
		return fmt.Errorf("invalid framework: %s (valid: %s)", c.Analysis.Framework, frameworkList())
	}
	return nil
}

func frameworkList() string {
	names := make([]string, len(constants.Frameworks))
	for i, f := range constants.Frameworks {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("LELIR_CONVERGENCE_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Convergence.Window = n
		}
	}

	if v := os.Getenv("LELIR_REL_DELTA_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Convergence.RelDeltaThreshold = f
		}
	}

	if v := os.Getenv("LELIR_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("LELIR_FINDINGS_DIR"); v != "" {
		config.Logging.FindingsDir = v
	}

	if v := os.Getenv("LELIR_TELEMETRY_ENABLED"); v != "" {
		config.Telemetry.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("LELIR_FRAMEWORK"); v != "" {
		config.Analysis.Framework = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
