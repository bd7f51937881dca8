package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap"
	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Detect and merge split-brain duplicate parks",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		merged, err := svcs.Reconcile.MergeSweep(ctx)
		if err != nil {
			logging.Error(ctx, "merge sweep failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "merge sweep")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d duplicate pairs merged\n", merged); err != nil {
			return errs.Wrap(err, "write sweep output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
