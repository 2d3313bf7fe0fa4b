package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/packwave/internal/sweep"
)

func newSweepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweeps",
		Short: "Inspect sweeps recorded in the results database",
	}
	cmd.PersistentFlags().String("db", defaultDBPath, "SQLite results database")

	cmd.AddCommand(
		newSweepsListCmd(),
		newSweepsShowCmd(),
		newSweepsExportCmd(),
		newSweepsDeleteCmd(),
	)
	return cmd
}

func newSweepsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded sweeps, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			limit, _ := cmd.Flags().GetInt("limit")

			db, sweepStore, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			sweeps, err := sweepStore.ListSweeps(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(sweeps) == 0 {
				fmt.Fprintln(out, "no sweeps recorded")
				return nil
			}

			colors := scheme(cmd)
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOMBINATIONS\tSTARTED\tCOMPLETED\tSTATUS")
			for _, s := range sweeps {
				completed := "-"
				if s.CompletedAt != nil {
					completed = s.CompletedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					s.SweepID, s.Name, s.Combinations,
					s.StartedAt.UTC().Format(time.RFC3339), completed,
					colors.statusColor(s.Status).Sprint(s.Status))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum sweeps to list")
	return cmd
}

func newSweepsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <sweep-id>",
		Short: "Show one sweep's metadata and aggregated results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			sweepID := args[0]

			db, sweepStore, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			stored, err := sweepStore.GetSweep(sweepID)
			if err != nil {
				return err
			}
			if stored == nil {
				return fmt.Errorf("sweep %s not found", sweepID)
			}

			colors := scheme(cmd)
			out := cmd.OutOrStdout()
			printField := func(key, value string) {
				fmt.Fprintf(out, "%s %s\n", colors.Key.Sprintf("%-13s", key+":"), value)
			}

			printField("id", stored.SweepID)
			printField("name", stored.Name)
			if stored.Description != "" {
				printField("description", stored.Description)
			}
			printField("status", colors.statusColor(stored.Status).Sprint(stored.Status))
			printField("combinations", strconv.Itoa(stored.Combinations))
			printField("started", stored.StartedAt.UTC().Format(time.RFC3339))
			if stored.CompletedAt != nil {
				printField("completed", stored.CompletedAt.UTC().Format(time.RFC3339))
			}
			if stored.Error != "" {
				printField("error", colors.Error.Sprint(stored.Error))
			}

			record, err := sweepStore.LoadSweepRecord(sweepID)
			if err != nil || record == nil || len(record.Results) == 0 {
				return err
			}

			fmt.Fprintln(out, "results:")
			for _, result := range record.Results {
				fmt.Fprintf(out, "  %s => %s\n",
					formatParams(record.Parameters, result.Combination), formatMetrics(result.Metrics))
			}
			return nil
		},
	}
}

func newSweepsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <sweep-id>",
		Short: "Export one sweep's results as flattened CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			output, _ := cmd.Flags().GetString("output")
			sweepID := args[0]

			db, sweepStore, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			record, err := sweepStore.LoadSweepRecord(sweepID)
			if err != nil {
				return err
			}
			if record == nil {
				return fmt.Errorf("sweep %s not found", sweepID)
			}

			csv, err := sweep.FlattenCSV(record)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(csv)
				return err
			}
			if err := os.WriteFile(output, csv, 0o644); err != nil {
				return err
			}
			colors := scheme(cmd)
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", colors.Success.Sprint("✓"), output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", `Output file ("-" or empty for stdout)`)
	return cmd
}

func newSweepsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <sweep-id>",
		Short: "Delete a recorded sweep",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			sweepID := args[0]

			db, sweepStore, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sweepStore.DeleteSweep(sweepID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted sweep %s\n", sweepID)
			return nil
		},
	}
}

// formatParams renders a combination's parameters in column order.
func formatParams(order []string, params map[string]float64) string {
	parts := make([]string, 0, len(params))
	seen := make(map[string]bool, len(params))
	for _, name := range order {
		if value, ok := params[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", name, strconv.FormatFloat(value, 'g', -1, 64)))
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(params))
	for name := range params {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		parts = append(parts, fmt.Sprintf("%s=%s", name, strconv.FormatFloat(params[name], 'g', -1, 64)))
	}
	return strings.Join(parts, " ")
}

// formatMetrics renders metrics sorted by key.
func formatMetrics(metrics map[string]float64) string {
	keys := make([]string, 0, len(metrics))
	for key := range metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, strconv.FormatFloat(metrics[key], 'g', -1, 64)))
	}
	return strings.Join(parts, " ")
}
