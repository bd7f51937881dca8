package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap"
	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
)

var statusCmd = &cobra.Command{
	Use:   "status <park-id>",
	Short: "Resolve the consolidated status of one park",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		res, err := svcs.Status.Resolve(ctx, cmd.Flags().Args()[0])
		if err != nil {
			logging.Error(ctx, "status resolution failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "resolve status")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (via %s)\n", res.ParkID, res.Status, res.Tier); err != nil {
			return errs.Wrap(err, "write status output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
