package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap"
	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
)

var syncSource string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync parks, children and schedules from upstream providers",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		sources, err := resolveSources(syncSource)
		if err != nil {
			return err
		}

		for _, source := range sources {
			synced, err := svcs.Reconcile.SyncEntities(ctx, source)
			if err != nil {
				logging.Error(ctx, "entity sync failed",
					slog.String("source", string(source)), slog.Any("err", errs.Loggable(err)))
				return errs.Wrapf(err, "sync source %q", source)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entities synced\n", source, synced); err != nil {
				return errs.Wrap(err, "write sync output")
			}
		}
		return nil
	}),
}

// resolveSources expands "all" and validates an explicit source name.
func resolveSources(flag string) ([]park.Source, error) {
	if flag == "" || flag == "all" {
		return park.Sources, nil
	}
	source := park.Source(flag)
	if !source.Valid() {
		return nil, errs.Wrapf(park.ErrMalformedRecord, "unknown source %q", flag)
	}
	return []park.Source{source}, nil
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncSource, "source", "all", "Provider to sync (queue-times, wartezeiten, themeparks-wiki or all)")
}
