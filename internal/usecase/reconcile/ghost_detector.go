package reconcile

import (
	"context"
	"log/slog"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

// MergeSweep finds split-brain duplicates (parks sharing a provider id) and
// merges every group into its strongest member. Merges inside a group run
// sequentially so two transactions never race on the same winner row; one
// failed group never stops the others. Returns the number of completed
// merges.
func (s *Service) MergeSweep(ctx context.Context) (int, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "reconcile.sweep"))

	groups, err := s.entities.DuplicateParkGroups(ctx)
	if err != nil {
		return 0, errs.Wrap(err, "detect duplicate groups")
	}

	merged := 0
	for _, group := range groups {
		winner, err := s.pickWinner(logCtx, group)
		if err != nil {
			logging.Warn(logCtx, "winner selection failed", slog.Any("err", errs.Loggable(err)))
			continue
		}

		for _, member := range group {
			if member.ID == winner.ID {
				continue
			}

			done, err := s.MergePair(logCtx, winner.ID, member.ID)
			if err != nil {
				// Logged inside MergePair; the next sweep re-detects from
				// current state.
				continue
			}
			if !done {
				// A park in several groups can already be gone by the time
				// its later group runs. Nothing happened, nothing to report.
				continue
			}

			merged++
			s.metrics.MergesCompleted.Inc()
			if err := s.publisher.Publish(logCtx, ports.SubjectEntityMerged, map[string]any{
				"winnerId": winner.ID,
				"loserId":  member.ID,
			}); err != nil {
				logging.Warn(logCtx, "merge event publish failed", slog.Any("err", errs.Loggable(err)))
			}
		}
	}

	logging.Info(logCtx, "merge sweep finished", slog.Int("groups", len(groups)), slog.Int("merged", merged))
	return merged, nil
}

// pickWinner scores each group member with the configured priority weights:
// schedule data, recent telemetry, an authoritative-provider id. Ties fall to
// the earliest-created record, so repeated sweeps agree on the same winner.
func (s *Service) pickWinner(ctx context.Context, group []ports.Park) (ports.Park, error) {
	now := s.now()

	winner := group[0]
	winnerSignals, err := s.parkSignals(ctx, winner)
	if err != nil {
		return ports.Park{}, err
	}

	for _, candidate := range group[1:] {
		candidateSignals, err := s.parkSignals(ctx, candidate)
		if err != nil {
			return ports.Park{}, err
		}
		if !s.weights.FirstWins(winnerSignals, candidateSignals, now, s.recency) {
			winner = candidate
			winnerSignals = candidateSignals
		}
	}
	return winner, nil
}

func (s *Service) parkSignals(ctx context.Context, p ports.Park) (park.RecordSignals, error) {
	hasSchedule, err := s.schedules.HasSchedule(ctx, p.ID)
	if err != nil {
		return park.RecordSignals{}, err
	}

	signals := park.RecordSignals{
		HasScheduleData:    hasSchedule,
		HasAuthoritativeID: p.ThemeparksWikiID != nil,
		CreatedAt:          p.CreatedAt,
	}

	var childIDs []string
	for _, kind := range ports.ChildKinds {
		children, err := s.entities.ListChildren(ctx, p.ID, kind)
		if err != nil {
			return park.RecordSignals{}, err
		}
		for _, c := range children {
			childIDs = append(childIDs, c.ID)
		}
	}

	if lastSeen, ok, err := s.telemetry.LastSampleTime(ctx, childIDs); err != nil {
		return park.RecordSignals{}, err
	} else if ok {
		signals.LastTelemetryAt = lastSeen
	}

	return signals, nil
}
