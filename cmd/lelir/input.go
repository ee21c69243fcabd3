package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trace-semantics/internal/adapter"
	"github.com/nvandessel/trace-semantics/internal/codec"
	"github.com/nvandessel/trace-semantics/internal/config"
	"github.com/nvandessel/trace-semantics/internal/lel"
)

// loadConfig honors --config and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// addInputFlags registers the flags read by loadTrace.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("adapter", "", fmt.Sprintf("Parse a raw trace with the named adapter (%s)", strings.Join(adapter.Names(), ", ")))
	cmd.Flags().String("experiment", "", "Experiment id for adapter input (default: random UUID)")
}

// loadTrace reads the log at path and reports the framework that produced
// it. Without --adapter, path must be a .json or .yaml log document and the
// framework comes from the config.
func loadTrace(cmd *cobra.Command, path string, cfg *config.Config) (*lel.LayeredEventLog, string, error) {
	name, _ := cmd.Flags().GetString("adapter")
	if name == "" {
		doc, err := codec.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		return doc.Log(), cfg.Analysis.Framework, nil
	}

	experimentID, _ := cmd.Flags().GetString("experiment")
	a, err := adapter.Lookup(name, adapter.Options{
		ExperimentID: experimentID,
		SourceFile:   filepath.Base(path),
		Params:       cfg.Convergence.Params(),
	})
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	log, err := a.Parse(cmd.Context(), f)
	if err != nil {
		return nil, "", err
	}
	return log, a.Framework().String(), nil
}
