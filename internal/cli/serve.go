package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/packwave/internal/api"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recorded sweep results over HTTP",
		Long: `Serve the read-only results API over HTTP until interrupted.

Endpoints: /api/healthz, /api/sweeps, /api/sweeps/{id},
/api/sweeps/{id}/csv.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			listen, _ := cmd.Flags().GetString("listen")
			out := cmd.OutOrStdout()

			db, sweepStore, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			server := &http.Server{
				Addr:    listen,
				Handler: api.LoggingMiddleware(api.NewServer(sweepStore).ServeMux()),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			fmt.Fprintf(out, "serving sweep results from %s on %s\n", dbPath, listen)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			fmt.Fprintln(out, "shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http server shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("db", defaultDBPath, "SQLite results database")
	cmd.Flags().String("listen", ":8080", "Listen address")

	return cmd
}
