package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "lelir",
		Short: "Layered event logs for simulation traces",
		Long: `lelir turns simulation traces into layered event logs and analyzes them.

It records every trace event with its theory, methodology or implementation
layer, builds the causal overlay over those events, and answers which
hypotheses were falsified, which DAG nodes are implicated, which
uncontrolled variables confound an intervention, and whether the run
converged.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ~/.lelir/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newAnalyzeCmd(),
		newConvertCmd(),
		newGraphCmd(),
		newBenchCmd(),
		newConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "lelir version %s\n", version)
			}
		},
	}
}
