package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trace-semantics/internal/analysis"
	"github.com/nvandessel/trace-semantics/internal/codec"
	"github.com/nvandessel/trace-semantics/internal/config"
	"github.com/nvandessel/trace-semantics/internal/constants"
	"github.com/nvandessel/trace-semantics/internal/logging"
	"github.com/nvandessel/trace-semantics/internal/telemetry"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <trace>",
		Short: "Analyze a layered event log",
		Long: `Run the causal and convergence analyses over a trace.

The trace is a log document (.json, .yaml) unless --adapter names a raw
trace format. A convergence summary is derived when the log carries none.

Examples:
  lelir analyze run.json                        # Analyze a log document
  lelir analyze --adapter energy md.log         # Parse and analyze a raw energy series
  lelir analyze --adapter oszicar OSZICAR --out run.yaml
  lelir analyze run.json --json                 # Machine-readable report`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			outPath, _ := cmd.Flags().GetString("out")
			frameworkFlag, _ := cmd.Flags().GetString("framework")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log, framework, err := loadTrace(cmd, args[0], cfg)
			if err != nil {
				return err
			}
			if frameworkFlag != "" {
				framework = frameworkFlag
			}
			fw, ok := constants.ParseFramework(framework)
			if !ok {
				return fmt.Errorf("unknown framework: %s", framework)
			}

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			findingsDir := cfg.Logging.FindingsDir
			if findingsDir == "" {
				if dir, err := config.Dir(); err == nil {
					findingsDir = dir
				}
			}
			findings := logging.NewFindingsLogger(findingsDir, cfg.Logging.Level)
			defer findings.Close()

			tp, err := telemetry.New(cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("failed to set up telemetry: %w", err)
			}

			runner := analysis.NewRunner(
				analysis.WithParams(cfg.Convergence.Params()),
				analysis.WithFramework(fw.String()),
				analysis.WithLogger(logger),
				analysis.WithFindings(findings),
				analysis.WithTelemetry(tp),
			)
			rep, err := runner.Run(cmd.Context(), log)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if outPath != "" {
				if err := codec.WriteFile(outPath, codec.NewDocument(rep.Log, rep.Overlay)); err != nil {
					return fmt.Errorf("failed to write log document: %w", err)
				}
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printReport(cmd.OutOrStdout(), rep)
			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nLog document written to %s\n", outPath)
			}
			return nil
		},
	}

	addInputFlags(cmd)
	cmd.Flags().String("framework", "", "Framework used for convergence (default: adapter framework or analysis.framework)")
	cmd.Flags().String("out", "", "Write the analyzed log document with its overlay to this .json or .yaml file")

	return cmd
}

func printReport(w io.Writer, rep *analysis.Report) {
	ref := rep.ExperimentRef
	fmt.Fprintf(w, "Experiment: %s", ref.ExperimentID)
	if ref.HypothesisID != "" {
		fmt.Fprintf(w, " (cycle %d, hypothesis %s)", ref.CycleID, ref.HypothesisID)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Framework:  %s\n", rep.Framework)
	fmt.Fprintf(w, "Events:     %d", rep.EventCount)
	if rep.DerivedSummary {
		fmt.Fprint(w, " (convergence summary derived)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Overlay:    %d entities, %d edges\n", rep.EntityCount, rep.EdgeCount)

	fmt.Fprintf(w, "\nComparisons (%d):\n", len(rep.Comparisons))
	for _, c := range rep.Comparisons {
		status := "agrees"
		if c.IsFalsified {
			status = "FALSIFIED"
		}
		fmt.Fprintf(w, "  event #%d  %-16s %s\n", c.ComparisonEventIdx, c.Variable, status)
	}

	if len(rep.Implications) > 0 {
		fmt.Fprintf(w, "\nImplicated nodes:\n")
		for _, imp := range rep.Implications {
			names := make([]string, 0, len(imp.Nodes))
			for _, n := range imp.Nodes {
				names = append(names, fmt.Sprintf("%s (%s, distance %d)", n.DAGNode, n.Layer, n.CausalDistance))
			}
			fmt.Fprintf(w, "  event #%d: %s\n", imp.Comparison.ComparisonEventIdx, strings.Join(names, ", "))
		}
	}

	if len(rep.Confounders) > 0 {
		fmt.Fprintf(w, "\nConfounders:\n")
		for _, cs := range rep.Confounders {
			names := make([]string, 0, len(cs.Candidates))
			for _, c := range cs.Candidates {
				names = append(names, c.DAGNode)
			}
			fmt.Fprintf(w, "  %s <- %s: %s\n", cs.Observable, cs.Intervention, strings.Join(names, ", "))
		}
	}

	fmt.Fprintf(w, "\nConvergence (%d):\n", len(rep.Convergence))
	for _, v := range rep.Convergence {
		fmt.Fprintf(w, "  event %d  %-18s %-8s %s\n", v.EventID, v.Pattern, v.Confidence, v.SourceMetric)
	}
}
