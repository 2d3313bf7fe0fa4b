package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/packwave/internal/config"
	"github.com/banshee-data/packwave/internal/monitoring"
	"github.com/banshee-data/packwave/internal/sim"
	"github.com/banshee-data/packwave/internal/store"
	"github.com/banshee-data/packwave/internal/sweep"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a parameter sweep from an experiment config",
		Long: `Run a parameter sweep defined by an experiment config file.

Every grid combination is simulated with seeded replications and the
aggregated metrics are checkpointed after each combination, so an
interrupted sweep keeps everything finished so far. SIGINT and SIGTERM
stop the sweep at the next combination boundary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			resultsDir, _ := cmd.Flags().GetString("results-dir")
			dbPath, _ := cmd.Flags().GetString("db")
			out := cmd.OutOrStdout()
			colors := scheme(cmd)

			experiment, err := config.Load(configPath)
			if err != nil {
				return err
			}
			req := experiment.ToRequest()

			combos, err := sweep.GenerateCombinations(req.Grid, req.Base)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "sweeping %s: %d combinations x %d replications\n",
				colors.Highlight.Sprint(req.Name), len(combos), req.Replications)

			fileSink, err := sweep.NewFileSink(resultsDir)
			if err != nil {
				return err
			}
			sinks := sweep.MultiSink{fileSink}

			var sweepStore *store.SweepStore
			if dbPath != "" {
				db, st, err := openStore(dbPath)
				if err != nil {
					return err
				}
				defer db.Close()
				sweepStore = st
				sinks = append(sinks, store.NewStoreSink(sweepStore))
			}

			runner := sweep.NewRunner(sim.Simulate, sinks)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			record, err := runner.Run(ctx, req)
			if err != nil {
				if sweepStore != nil {
					if state := runner.State(); state.SweepID != "" {
						if markErr := sweepStore.SaveSweepFailed(state.SweepID, err.Error()); markErr != nil {
							monitoring.Logf("[sweep] failed to mark sweep %s failed: %v", state.SweepID, markErr)
						}
					}
				}
				return err
			}

			fmt.Fprintf(out, "%s sweep %s done: %d combinations, results in %s\n",
				colors.Success.Sprint("✓"), record.ID, len(record.Results), resultsDir)
			if dbPath != "" {
				fmt.Fprintf(out, "recorded in %s\n", dbPath)
			}
			return nil
		},
	}

	cmd.Flags().StringP("config", "c", "", "Experiment config file (JSON or YAML)")
	cmd.MarkFlagRequired("config")
	cmd.Flags().String("results-dir", "results", "Directory for checkpoint and final result files")
	cmd.Flags().String("db", "", "Also record the sweep in this SQLite database")

	return cmd
}
