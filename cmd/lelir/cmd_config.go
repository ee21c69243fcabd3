package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trace-semantics/internal/config"
	"github.com/nvandessel/trace-semantics/internal/constants"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage lelir configuration",
		Long: `View and modify lelir configuration settings.

Configuration is stored in ~/.lelir/config.yaml.

Examples:
  lelir config list                              # Show all settings
  lelir config get convergence.window            # Get a specific setting
  lelir config set analysis.framework gromacs    # Set a setting
  lelir config set logging.level debug           # Record findings to ~/.lelir/findings.jsonl`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}
			fmt.Fprintln(out, "Configuration (~/.lelir/config.yaml):")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Convergence Settings:")
			fmt.Fprintf(out, "  convergence.window:              %d\n", cfg.Convergence.Window)
			fmt.Fprintf(out, "  convergence.rel_delta_threshold: %g\n", cfg.Convergence.RelDeltaThreshold)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging Settings:")
			fmt.Fprintf(out, "  logging.level:                   %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "  logging.findings_dir:            %s\n", valueOrDefault(cfg.Logging.FindingsDir, "(~/.lelir)"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Telemetry Settings:")
			fmt.Fprintf(out, "  telemetry.enabled:               %v\n", cfg.Telemetry.Enabled)
			fmt.Fprintf(out, "  telemetry.service_name:          %s\n", cfg.Telemetry.ServiceName)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Analysis Settings:")
			fmt.Fprintf(out, "  analysis.framework:              %s\n", cfg.Analysis.Framework)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Unknown configuration key: %s\n", key)
				}
				return nil
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			} else {
				fmt.Fprintf(out, "%s = %v\n", key, value)
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if err := setConfigValue(cfg, key, value); err != nil {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": err.Error(),
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Error: %v\n", err)
				}
				return nil
			}

			if err := saveConfig(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			} else {
				fmt.Fprintf(out, "Set %s = %s\n", key, value)
			}
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (interface{}, bool) {
	switch key {
	case "convergence.window":
		return cfg.Convergence.Window, true
	case "convergence.rel_delta_threshold":
		return cfg.Convergence.RelDeltaThreshold, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "logging.findings_dir":
		return cfg.Logging.FindingsDir, true
	case "telemetry.enabled":
		return cfg.Telemetry.Enabled, true
	case "telemetry.service_name":
		return cfg.Telemetry.ServiceName, true
	case "analysis.framework":
		return cfg.Analysis.Framework, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key and
// validates the result.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "convergence.window":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid window: %s", value)
		}
		cfg.Convergence.Window = n
	case "convergence.rel_delta_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid threshold: %s", value)
		}
		cfg.Convergence.RelDeltaThreshold = f
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.findings_dir":
		cfg.Logging.FindingsDir = value
	case "telemetry.enabled":
		cfg.Telemetry.Enabled = value == "true" || value == "1"
	case "telemetry.service_name":
		cfg.Telemetry.ServiceName = value
	case "analysis.framework":
		f, ok := constants.ParseFramework(value)
		if !ok {
			return fmt.Errorf("invalid framework: %s", value)
		}
		cfg.Analysis.Framework = f.String()
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return cfg.Validate()
}

// saveConfig writes the configuration to ~/.lelir/config.yaml.
func saveConfig(cfg *config.Config) error {
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	return cfg.Save(filepath.Join(dir, "config.yaml"))
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
