package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trace-semantics/internal/codec"
	"github.com/nvandessel/trace-semantics/internal/overlay"
)

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <trace> <output>",
		Short: "Convert a trace to a log document",
		Long: `Write a trace as a log document. The output format follows the
extension of <output> (.json, .yaml, .yml). The causal overlay is stored
alongside the events unless --no-overlay is given.

Examples:
  lelir convert run.json run.yaml
  lelir convert --adapter oszicar OSZICAR vasp.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			noOverlay, _ := cmd.Flags().GetBool("no-overlay")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, _, err := loadTrace(cmd, args[0], cfg)
			if err != nil {
				return err
			}

			var ov *overlay.CausalOverlay
			if !noOverlay {
				ov = overlay.FromLog(log)
			}
			if err := codec.WriteFile(args[1], codec.NewDocument(log, ov)); err != nil {
				return err
			}

			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status":     "written",
					"path":       args[1],
					"events":     log.Len(),
					"experiment": log.ExperimentRef().ExperimentID,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events to %s\n", log.Len(), args[1])
			}
			return nil
		},
	}

	addInputFlags(cmd)
	cmd.Flags().Bool("no-overlay", false, "Omit the causal overlay from the document")

	return cmd
}
