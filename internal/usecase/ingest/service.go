package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/metrics"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/upstream"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

// Service ingests live queue telemetry. Every incoming reading passes the
// delta filter: only changes (or the daily anchor sample) are appended, so the
// telemetry table stays a log of state transitions rather than of polls.
type Service struct {
	entities  ports.EntityRepository
	telemetry ports.TelemetryRepository
	cache     ports.Cache
	publisher ports.EventPublisher
	metrics   *metrics.Metrics

	providers map[park.Source]upstream.Provider

	now func() time.Time
}

func NewService(
	entities ports.EntityRepository,
	telemetry ports.TelemetryRepository,
	cache ports.Cache,
	publisher ports.EventPublisher,
	m *metrics.Metrics,
	providers []upstream.Provider,
) *Service {
	bySource := make(map[park.Source]upstream.Provider, len(providers))
	for _, p := range providers {
		bySource[p.Source()] = p
	}
	return &Service{
		entities:  entities,
		telemetry: telemetry,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		providers: bySource,
		now:       time.Now,
	}
}

// IngestSample runs one reading for one child entity through the delta filter
// and appends it when it carries new information. Returns whether the sample
// was persisted.
func (s *Service) IngestSample(ctx context.Context, entityID string, sample park.Sample) (bool, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "ingest"))

	child, found, err := s.entities.GetChildByID(logCtx, entityID)
	if err != nil {
		return false, errs.Wrap(err, "load child")
	}
	if !found {
		return false, ports.ErrChildNotFound
	}

	p, err := s.entities.GetPark(logCtx, child.ParkID)
	if err != nil {
		return false, errs.Wrap(err, "load park")
	}

	return s.persistSample(logCtx, child, s.location(logCtx, p), sample)
}

// SyncLive pulls live telemetry from one provider for every park the provider
// knows, running each reading through the delta filter. One broken park or
// channel never stops the rest. Returns the number of persisted samples.
func (s *Service) SyncLive(ctx context.Context, source park.Source) (int, error) {
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "ingest"),
		slog.String("source", string(source)),
	)

	provider, ok := s.providers[source]
	if !ok {
		return 0, errs.Wrapf(park.ErrMalformedRecord, "no provider for source %q", source)
	}

	parks, err := s.entities.ListParks(logCtx)
	if err != nil {
		return 0, errs.Wrap(err, "list parks")
	}

	persisted := 0
	for _, p := range parks {
		externalID, linked := p.ExternalID(source)
		if !linked {
			continue
		}

		entries, err := provider.FetchLive(logCtx, externalID)
		if err != nil {
			logging.Warn(logCtx, "live fetch failed",
				slog.String("park_id", p.ID), slog.Any("err", errs.Loggable(err)))
			continue
		}
		if len(entries) == 0 {
			continue
		}

		children, err := s.childIndex(logCtx, p.ID, source)
		if err != nil {
			logging.Warn(logCtx, "child index failed",
				slog.String("park_id", p.ID), slog.Any("err", errs.Loggable(err)))
			continue
		}
		loc := s.location(logCtx, p)

		for _, entry := range entries {
			child, matched := matchChild(children, entry)
			if !matched {
				// Entities sync will pick the newcomer up on its next run.
				continue
			}

			written, err := s.persistSample(logCtx, child, loc, liveSample(entry, s.now()))
			if err != nil {
				logging.Warn(logCtx, "sample persist failed",
					slog.String("entity_id", child.ID), slog.Any("err", errs.Loggable(err)))
				continue
			}
			if written {
				persisted++
			}
		}
	}

	logging.Info(logCtx, "live sync finished", slog.Int("persisted", persisted))
	return persisted, nil
}

// persistSample applies the delta filter against the channel's newest stored
// sample and appends when it passes. A status transition invalidates the
// park's memoized status and emits a change event.
func (s *Service) persistSample(ctx context.Context, child ports.Child, loc *time.Location, sample park.Sample) (bool, error) {
	var prev *park.Sample
	last, found, err := s.telemetry.LatestSample(ctx, child.ID, sample.QueueType)
	if err != nil {
		return false, errs.Wrap(err, "load latest sample")
	}
	if found {
		prev = &park.Sample{
			QueueType:        last.QueueType,
			Status:           last.Status,
			WaitTime:         last.WaitTime,
			ReturnStart:      last.ReturnStart,
			ReturnEnd:        last.ReturnEnd,
			AllocationStatus: last.AllocationStatus,
			Timestamp:        last.Timestamp,
		}
	}

	if !park.ShouldPersist(prev, sample, loc) {
		s.metrics.SamplesFiltered.Inc()
		return false, nil
	}

	err = s.telemetry.AppendSample(ctx, ports.QueueSample{
		ID:               uuid.NewString(),
		EntityID:         child.ID,
		QueueType:        sample.QueueType,
		Status:           sample.Status,
		WaitTime:         sample.WaitTime,
		ReturnStart:      sample.ReturnStart,
		ReturnEnd:        sample.ReturnEnd,
		AllocationStatus: sample.AllocationStatus,
		Timestamp:        sample.Timestamp,
	})
	if err != nil {
		return false, errs.Wrap(err, "append sample")
	}
	s.metrics.SamplesPersisted.Inc()

	if prev != nil && prev.Status != sample.Status {
		if err := s.cache.Delete(ctx, "status:"+child.ParkID); err != nil {
			logging.Warn(ctx, "status cache invalidation failed",
				slog.String("park_id", child.ParkID), slog.Any("err", errs.Loggable(err)))
		}
		if err := s.publisher.Publish(ctx, ports.SubjectStatusChanged, map[string]any{
			"entityId":  child.ID,
			"parkId":    child.ParkID,
			"queueType": string(sample.QueueType),
			"from":      string(prev.Status),
			"to":        string(sample.Status),
		}); err != nil {
			logging.Warn(ctx, "status event publish failed", slog.Any("err", errs.Loggable(err)))
		}
	}

	return true, nil
}

// childKey addresses one canonical child by its provider id. The kind is part
// of the key: a show and an attraction may carry the same id value from the
// same provider.
type childKey struct {
	kind       park.EntityKind
	externalID string
}

// childIndex maps (kind, external id) to canonical children across all child
// collections of one park.
func (s *Service) childIndex(ctx context.Context, parkID string, source park.Source) (map[childKey]ports.Child, error) {
	index := make(map[childKey]ports.Child)
	for _, kind := range ports.ChildKinds {
		children, err := s.entities.ListChildren(ctx, parkID, kind)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if externalID, linked := c.ExternalID(source); linked {
				index[childKey{kind: kind, externalID: externalID}] = c
			}
		}
	}
	return index, nil
}

// matchChild resolves a live entry against the index. A typed entry looks up
// its own collection; an untyped one matches only when the id is unambiguous
// across collections.
func matchChild(index map[childKey]ports.Child, entry upstream.LiveEntry) (ports.Child, bool) {
	if entry.Kind != "" {
		c, ok := index[childKey{kind: entry.Kind, externalID: entry.ExternalID}]
		return c, ok
	}

	var match ports.Child
	found := false
	for _, kind := range ports.ChildKinds {
		c, ok := index[childKey{kind: kind, externalID: entry.ExternalID}]
		if !ok {
			continue
		}
		if found {
			return ports.Child{}, false
		}
		match, found = c, true
	}
	return match, found
}

// liveSample normalizes one provider reading. A missing status reads as
// CLOSED, a missing timestamp as the poll instant.
func liveSample(e upstream.LiveEntry, now time.Time) park.Sample {
	status := park.StatusClosed
	if e.Status != nil {
		status = park.Status(*e.Status)
	}
	ts := now
	if e.LastUpdated != nil {
		ts = *e.LastUpdated
	}
	return park.Sample{
		QueueType:        e.QueueType,
		Status:           status,
		WaitTime:         e.WaitTime,
		ReturnStart:      e.ReturnStart,
		ReturnEnd:        e.ReturnEnd,
		AllocationStatus: e.AllocationStatus,
		Timestamp:        ts,
	}
}

func (s *Service) location(ctx context.Context, p ports.Park) *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		logging.Warn(ctx, "unknown park timezone",
			slog.String("park_id", p.ID), slog.String("timezone", p.Timezone))
		return time.UTC
	}
	return loc
}
