package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap"
	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the status API and metrics endpoint",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- svcs.Server.Start(ctx)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return errs.Wrap(err, "serve")
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svcs.Server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown server")
		}

		logging.Info(ctx, "server stopped")
		return <-serveErr
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
