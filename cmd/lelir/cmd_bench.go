package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trace-semantics/internal/bench"
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time log and overlay construction on synthetic traces",
		Long: `Generate deterministic synthetic logs at each scale and time log
construction and causal overlay construction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			scales, _ := cmd.Flags().GetIntSlice("scales")
			parallel, _ := cmd.Flags().GetInt("parallel")
			seedStr, _ := cmd.Flags().GetString("seed")

			seed, err := strconv.ParseUint(seedStr, 0, 64)
			if err != nil {
				return fmt.Errorf("invalid seed %q: %w", seedStr, err)
			}

			results, err := bench.Run(cmd.Context(), scales, seed, parallel)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%10s %14s %14s %10s %10s %10s\n", "events", "log", "overlay", "entities", "edges", "dag_nodes")
			for _, r := range results {
				fmt.Fprintf(out, "%10d %14s %14s %10d %10d %10d\n",
					r.Events, r.LogDuration, r.OverlayDuration, r.Entities, r.Edges, r.DAGGroups)
			}
			return nil
		},
	}

	cmd.Flags().IntSlice("scales", bench.DefaultScales, "Event counts to generate")
	cmd.Flags().Int("parallel", 1, "Scales measured concurrently")
	cmd.Flags().String("seed", fmt.Sprintf("%#x", uint64(bench.DefaultSeed)), "Generator seed")

	return cmd
}
