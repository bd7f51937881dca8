package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

// MergePair migrates everything the loser owns into the winner and deletes
// the loser, all inside one transaction. Child rows whose slug collides with
// a winner child are folded into it (null fields backfilled, referencing rows
// repointed, loser child deleted); the rest are repointed wholesale.
//
// The loser is deleted only once proven childless; otherwise the whole
// transaction rolls back with park.ErrMergeSafety and the next sweep retries.
// Calling MergePair on an already-merged pair is a no-op: the loser is gone.
// The returned bool reports whether a merge was actually performed, so a
// no-op is never mistaken for a completed merge.
func (s *Service) MergePair(ctx context.Context, winnerID, loserID string) (bool, error) {
	if winnerID == loserID {
		return false, fmt.Errorf("cannot merge park %s into itself", winnerID)
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "reconcile.merge"),
		slog.String("winner", winnerID),
		slog.String("loser", loserID),
	)

	err := s.uow.WithTx(logCtx, func(txCtx context.Context) error {
		winner, err := s.entities.GetPark(txCtx, winnerID)
		if err != nil {
			return err
		}
		loser, err := s.entities.GetPark(txCtx, loserID)
		if err != nil {
			return err
		}

		for _, kind := range ports.ChildKinds {
			if err := s.mergeChildCollection(txCtx, kind, winner.ID, loser.ID); err != nil {
				return err
			}
		}

		if _, err := s.schedules.RepointEntries(txCtx, loser.ID, winner.ID); err != nil {
			return err
		}
		if _, err := s.entities.RepointMappings(txCtx, loser.ID, winner.ID); err != nil {
			return err
		}

		merged, changed := backfillPark(winner, loser)
		if changed {
			merged.UpdatedAt = s.now().UTC()
			if err := s.entities.UpdatePark(txCtx, merged); err != nil {
				return err
			}
		}

		remaining, err := s.entities.CountChildren(txCtx, loser.ID)
		if err != nil {
			return err
		}
		if remaining > 0 {
			return errs.Wrapf(park.ErrMergeSafety, "%d rows left on %s", remaining, loser.ID)
		}

		return s.entities.DeletePark(txCtx, loser.ID)
	})

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ports.ErrParkNotFound):
		// Loser (or winner) already gone: a previous merge completed.
		logging.Info(logCtx, "merge skipped, pair no longer exists")
		return false, nil
	case errors.Is(err, park.ErrMergeSafety):
		s.metrics.MergesAborted.Inc()
		logging.Error(logCtx, "merge aborted by safety check", slog.Any("err", errs.Loggable(err)))
		return false, err
	default:
		return false, errs.Wrap(err, "merge pair")
	}
}

func (s *Service) mergeChildCollection(ctx context.Context, kind park.EntityKind, winnerID, loserID string) error {
	loserChildren, err := s.entities.ListChildren(ctx, loserID, kind)
	if err != nil {
		return err
	}

	for _, loserChild := range loserChildren {
		winnerChild, collides, err := s.entities.FindChildBySlug(ctx, winnerID, kind, loserChild.Slug)
		if err != nil {
			return err
		}
		if !collides {
			continue
		}

		merged, changed := backfillChild(winnerChild, loserChild)
		if changed {
			if err := s.entities.UpdateChild(ctx, merged); err != nil {
				return err
			}
		}
		if _, err := s.telemetry.RepointSamples(ctx, loserChild.ID, winnerChild.ID); err != nil {
			return err
		}
		if _, err := s.entities.RepointMappings(ctx, loserChild.ID, winnerChild.ID); err != nil {
			return err
		}
		if err := s.entities.DeleteChild(ctx, kind, loserChild.ID); err != nil {
			return err
		}
	}

	// Whatever did not collide moves over in one bulk update.
	if _, err := s.entities.RepointChildren(ctx, kind, loserID, winnerID); err != nil {
		return err
	}
	return nil
}

// backfillPark copies scalar fields that are null on the winner from the
// loser. Populated winner fields are never overwritten.
func backfillPark(winner, loser ports.Park) (ports.Park, bool) {
	changed := false
	if winner.CountryCode == nil && loser.CountryCode != nil {
		winner.CountryCode = loser.CountryCode
		changed = true
	}
	if winner.Latitude == nil && loser.Latitude != nil {
		winner.Latitude = loser.Latitude
		changed = true
	}
	if winner.Longitude == nil && loser.Longitude != nil {
		winner.Longitude = loser.Longitude
		changed = true
	}
	if winner.QueueTimesID == nil && loser.QueueTimesID != nil {
		winner.QueueTimesID = loser.QueueTimesID
		changed = true
	}
	if winner.WartezeitenID == nil && loser.WartezeitenID != nil {
		winner.WartezeitenID = loser.WartezeitenID
		changed = true
	}
	if winner.ThemeparksWikiID == nil && loser.ThemeparksWikiID != nil {
		winner.ThemeparksWikiID = loser.ThemeparksWikiID
		changed = true
	}
	if (winner.Timezone == "" || winner.Timezone == "UTC") && loser.Timezone != "" && loser.Timezone != "UTC" {
		winner.Timezone = loser.Timezone
		changed = true
	}
	return winner, changed
}

func backfillChild(winner, loser ports.Child) (ports.Child, bool) {
	changed := false
	if winner.Latitude == nil && loser.Latitude != nil {
		winner.Latitude = loser.Latitude
		changed = true
	}
	if winner.Longitude == nil && loser.Longitude != nil {
		winner.Longitude = loser.Longitude
		changed = true
	}
	if winner.QueueTimesID == nil && loser.QueueTimesID != nil {
		winner.QueueTimesID = loser.QueueTimesID
		changed = true
	}
	if winner.WartezeitenID == nil && loser.WartezeitenID != nil {
		winner.WartezeitenID = loser.WartezeitenID
		changed = true
	}
	if winner.ThemeparksWikiID == nil && loser.ThemeparksWikiID != nil {
		winner.ThemeparksWikiID = loser.ThemeparksWikiID
		changed = true
	}
	return winner, changed
}
