package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/trace-semantics/internal/lel"
	"github.com/nvandessel/trace-semantics/internal/overlay"
	"github.com/nvandessel/trace-semantics/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <trace>",
		Short: "Visualize the causal overlay",
		Long: `Output the causal overlay of a trace in DOT (Graphviz) or JSON format,
or serve it over HTTP with --serve.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			cluster, _ := cmd.Flags().GetBool("cluster")
			highlight, _ := cmd.Flags().GetBool("highlight-falsified")
			serve, _ := cmd.Flags().GetBool("serve")
			noOpen, _ := cmd.Flags().GetBool("no-open")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, _, err := loadTrace(cmd, args[0], cfg)
			if err != nil {
				return err
			}
			ov := overlay.FromLog(log)

			if serve {
				return runGraphServer(cmd, cmd.Context(), log, ov, noOpen)
			}

			switch visualization.Format(format) {
			case visualization.FormatDOT:
				opts := visualization.Options{ClusterByDAGNode: cluster}
				if highlight {
					for _, c := range ov.ComparePredictions(log) {
						if c.IsFalsified {
							opts.Highlight = append(opts.Highlight, c.ComparisonEventIdx)
						}
					}
				}
				fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(log, ov, opts))

			case visualization.FormatJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(visualization.RenderJSON(log, ov)); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}

			default:
				return fmt.Errorf("unsupported format %q (use 'dot' or 'json')", format)
			}
			return nil
		},
	}

	addInputFlags(cmd)
	cmd.Flags().String("format", "dot", "Output format: dot or json")
	cmd.Flags().Bool("cluster", false, "Group DOT nodes by DAG node")
	cmd.Flags().Bool("highlight-falsified", false, "Highlight falsified comparison events in DOT output")
	cmd.Flags().Bool("serve", false, "Serve the overlay over HTTP until interrupted")
	cmd.Flags().Bool("no-open", false, "Don't open the browser with --serve")

	return cmd
}

// runGraphServer serves the overlay until ctx ends or the process is
// interrupted.
func runGraphServer(cmd *cobra.Command, ctx context.Context, log *lel.LayeredEventLog, ov *overlay.CausalOverlay, noOpen bool) error {
	srv := visualization.NewServer(log, ov)

	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			srvCancel()
		case <-srvCtx.Done():
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(srvCtx) }()

	addr, err := waitForServer(srv.Addr, errCh, 3*time.Second)
	if err != nil {
		srvCancel()
		return err
	}

	url := "http://" + addr
	fmt.Fprintf(cmd.OutOrStdout(), "Graph server running at %s\n", url)
	fmt.Fprintf(cmd.OutOrStdout(), "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// waitForServer polls addr until the listener is bound. A listen error on
// errCh ends the wait early and is returned as the failure cause.
func waitForServer(addr func() string, errCh <-chan error, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		select {
		case err := <-errCh:
			if err == nil {
				return "", fmt.Errorf("server failed to start: stopped before listening")
			}
			return "", fmt.Errorf("server failed to start: %w", err)
		default:
		}
		if a := addr(); a != "" {
			return a, nil
		}
		if !time.Now().Before(deadline) {
			return "", fmt.Errorf("server failed to start: no listener after %s", timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
