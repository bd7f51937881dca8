package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap"
	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
)

var liveSource string

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Pull live queue telemetry through the delta filter",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		sources, err := resolveSources(liveSource)
		if err != nil {
			return err
		}

		for _, source := range sources {
			persisted, err := svcs.Ingest.SyncLive(ctx, source)
			if err != nil {
				logging.Error(ctx, "live sync failed",
					slog.String("source", string(source)), slog.Any("err", errs.Loggable(err)))
				return errs.Wrapf(err, "live sync source %q", source)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples persisted\n", source, persisted); err != nil {
				return errs.Wrap(err, "write live output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().StringVar(&liveSource, "source", "all", "Provider to poll (queue-times, wartezeiten, themeparks-wiki or all)")
}
