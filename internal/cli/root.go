// Package cli implements the packwave command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/packwave/internal/store"
)

// defaultDBPath is where commands look for the results database unless
// --db says otherwise.
const defaultDBPath = "packwave.db"

// NewRootCmd builds the packwave command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "packwave",
		Short: "Traffic pack formation experiments",
		Long: `packwave runs ring-road traffic simulations and parameter sweeps to study
how vehicle packs form and when flow stabilizes.

Sweeps expand a parameter grid into combinations, run seeded replications
of each, and record aggregated metrics to JSON, CSV, and optionally a
SQLite results database served over HTTP.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newSweepCmd(),
		newSimulateCmd(),
		newPacksCmd(),
		newSweepsCmd(),
		newMigrateCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// scheme resolves the color scheme for a command's output writer.
func scheme(cmd *cobra.Command) *ColorScheme {
	noColor, _ := cmd.Flags().GetBool("no-color")
	return schemeFor(cmd.OutOrStdout(), noColor)
}

// openStore opens the results database and brings its schema up to date.
// The caller owns closing the returned DB.
func openStore(path string) (*store.DB, *store.SweepStore, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return db, store.NewSweepStore(db), nil
}
