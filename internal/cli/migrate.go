package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/packwave/internal/store"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the results database schema",
		Long: `Apply or roll back results database migrations.

Commands that use the database migrate it automatically; this command is
for inspecting the schema version and recovering from a failed migration.`,
	}
	cmd.PersistentFlags().String("db", defaultDBPath, "SQLite results database")

	cmd.AddCommand(
		newMigrateUpCmd(),
		newMigrateDownCmd(),
		newMigrateStatusCmd(),
		newMigrateForceCmd(),
	)
	return cmd
}

// openMigrateDB opens the database without touching the schema.
func openMigrateDB(cmd *cobra.Command) (*store.DB, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	return store.Open(dbPath)
}

func printMigrateVersion(cmd *cobra.Command, db *store.DB) {
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "current version unknown: %v\n", err)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "current version: %d (dirty: %v)\n", version, dirty)
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openMigrateDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MigrateUp(); err != nil {
				return fmt.Errorf("migration up failed: %w", err)
			}
			colors := scheme(cmd)
			fmt.Fprintf(cmd.OutOrStdout(), "%s all migrations applied\n", colors.Success.Sprint("✓"))
			printMigrateVersion(cmd, db)
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back one migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openMigrateDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MigrateDown(); err != nil {
				return fmt.Errorf("migration down failed: %w", err)
			}
			colors := scheme(cmd)
			fmt.Fprintf(cmd.OutOrStdout(), "%s migration rolled back\n", colors.Success.Sprint("✓"))
			printMigrateVersion(cmd, db)
			return nil
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openMigrateDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			version, dirty, err := db.MigrateVersion()
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			colors := scheme(cmd)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "current version: %d\n", version)
			fmt.Fprintf(out, "dirty: %v\n", dirty)
			if dirty {
				fmt.Fprintln(out, colors.Warn.Sprint("WARNING: database is in a dirty state"))
				fmt.Fprintln(out, "a migration failed mid-execution; inspect the database, then")
				fmt.Fprintln(out, "use 'packwave migrate force <version>' to mark a known-good version")
			}
			return nil
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Force the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}

			db, err := openMigrateDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.MigrateForce(version); err != nil {
				return fmt.Errorf("force version failed: %w", err)
			}
			colors := scheme(cmd)
			fmt.Fprintf(cmd.OutOrStdout(), "%s version forced to %d\n", colors.Success.Sprint("✓"), version)
			return nil
		},
	}
}
