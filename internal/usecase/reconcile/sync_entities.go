package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/upstream"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

// SyncEntities runs one full metadata pass for a source: parks, children and
// schedules. A malformed or failing record never aborts its siblings; the
// returned count is the number of parks successfully reconciled.
func (s *Service) SyncEntities(ctx context.Context, source park.Source) (int, error) {
	provider, ok := s.providers[source]
	if !ok {
		return 0, fmt.Errorf("no provider registered for source %q", source)
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "reconcile.sync"), slog.String("source", string(source)))

	upstreamParks, err := provider.FetchParks(ctx)
	if err != nil {
		return 0, errs.Wrapf(err, "fetch %s parks", source)
	}

	synced := 0
	skipped := 0
	for _, up := range upstreamParks {
		if up.ExternalID == "" || up.Name == "" {
			skipped++
			continue
		}

		canonicalID, err := s.syncPark(logCtx, source, up)
		if err != nil {
			skipped++
			logging.Warn(logCtx, "park sync failed",
				slog.String("external_id", up.ExternalID),
				slog.Any("err", errs.Loggable(err)),
			)
			continue
		}

		if err := s.syncChildren(logCtx, source, provider, canonicalID, up.ExternalID); err != nil {
			logging.Warn(logCtx, "children sync failed",
				slog.String("park_id", canonicalID),
				slog.Any("err", errs.Loggable(err)),
			)
		}
		if err := s.syncSchedule(logCtx, source, provider, canonicalID, up.ExternalID); err != nil {
			logging.Warn(logCtx, "schedule sync failed",
				slog.String("park_id", canonicalID),
				slog.Any("err", errs.Loggable(err)),
			)
		}

		synced++
		s.metrics.SyncedEntities.WithLabelValues(string(source), string(park.KindPark)).Inc()
	}

	if skipped > 0 {
		s.metrics.SkippedEntities.WithLabelValues(string(source)).Add(float64(skipped))
	}
	logging.Info(logCtx, "entity sync finished", slog.Int("synced", synced), slog.Int("skipped", skipped))
	return synced, nil
}

// syncPark finds or creates the canonical park for one upstream record and
// returns its id. Matching order: exact source id, then fuzzy name against
// all existing parks, then create.
func (s *Service) syncPark(ctx context.Context, source park.Source, up upstream.ProviderPark) (string, error) {
	existing, found, err := s.entities.FindParkBySourceID(ctx, source, up.ExternalID)
	if err != nil {
		return "", err
	}
	if found {
		if err := s.enrichPark(ctx, existing, source, up); err != nil {
			return "", err
		}
		return existing.ID, nil
	}

	all, err := s.entities.ListParks(ctx)
	if err != nil {
		return "", err
	}

	candidates := make([]park.Candidate, 0, len(all))
	index := make(map[string]ports.Park, len(all))
	for _, p := range all {
		candidates = append(candidates, park.Candidate{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt})
		index[p.ID] = p
	}

	if match, ok := park.BestMatch(up.Name, candidates, s.matching.ParkThreshold); ok {
		matched := index[match.ID]
		if err := s.enrichPark(ctx, matched, source, up); err != nil {
			return "", err
		}

		confidence := park.DiceCoefficient(park.NormalizeName(up.Name), park.NormalizeName(match.Name))
		if err := s.recordMapping(ctx, matched.ID, park.KindPark, source, up.ExternalID, confidence, ports.MappingMethodFuzzyName); err != nil {
			return "", err
		}
		return matched.ID, nil
	}

	created, err := s.createPark(ctx, source, up)
	if err != nil {
		return "", err
	}
	if err := s.recordMapping(ctx, created.ID, park.KindPark, source, up.ExternalID, 1.0, ports.MappingMethodExactID); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (s *Service) createPark(ctx context.Context, source park.Source, up upstream.ProviderPark) (ports.Park, error) {
	now := s.now().UTC()
	timezone := "UTC"
	if up.Timezone != nil && *up.Timezone != "" {
		timezone = *up.Timezone
	}

	candidate := ports.Park{
		ID:          uuid.NewString(),
		Name:        up.Name,
		Slug:        park.Slugify(up.Name),
		Timezone:    timezone,
		CountryCode: up.Country,
		Latitude:    up.Latitude,
		Longitude:   up.Longitude,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	attachParkSourceID(&candidate, source, up.ExternalID)

	created, err := s.entities.CreatePark(ctx, candidate)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, ports.ErrDuplicateKey) {
		return ports.Park{}, err
	}

	// Lost a race. Either another sync inserted the same source id, or a
	// different real park already owns the slug.
	racing, found, findErr := s.entities.FindParkBySourceID(ctx, source, up.ExternalID)
	if findErr != nil {
		return ports.Park{}, findErr
	}
	if found {
		if enrichErr := s.enrichPark(ctx, racing, source, up); enrichErr != nil {
			return ports.Park{}, enrichErr
		}
		return racing, nil
	}

	candidate.Slug = candidate.Slug + "-" + park.Slugify(up.ExternalID)
	created, err = s.entities.CreatePark(ctx, candidate)
	if err != nil {
		return ports.Park{}, errs.Wrap(err, "insert park with disambiguated slug")
	}
	return created, nil
}

// enrichPark backfills fields the stored record is missing, including the
// source id column. Populated fields are never overwritten; sources only ever
// add information.
func (s *Service) enrichPark(ctx context.Context, stored ports.Park, source park.Source, up upstream.ProviderPark) error {
	changed := attachParkSourceID(&stored, source, up.ExternalID)

	if stored.Timezone == "" || stored.Timezone == "UTC" {
		if up.Timezone != nil && *up.Timezone != "" && *up.Timezone != stored.Timezone {
			stored.Timezone = *up.Timezone
			changed = true
		}
	}
	if stored.CountryCode == nil && up.Country != nil {
		stored.CountryCode = up.Country
		changed = true
	}
	if stored.Latitude == nil && up.Latitude != nil {
		stored.Latitude = up.Latitude
		changed = true
	}
	if stored.Longitude == nil && up.Longitude != nil {
		stored.Longitude = up.Longitude
		changed = true
	}

	if !changed {
		return nil
	}
	stored.UpdatedAt = s.now().UTC()
	return s.entities.UpdatePark(ctx, stored)
}

func (s *Service) syncChildren(ctx context.Context, source park.Source, provider upstream.Provider, parkID, parkExternalID string) error {
	children, err := provider.FetchChildren(ctx, parkExternalID)
	if err != nil {
		return err
	}

	for _, up := range children {
		if up.ExternalID == "" || up.Name == "" {
			s.metrics.SkippedEntities.WithLabelValues(string(source)).Inc()
			continue
		}
		if err := s.syncChild(ctx, source, parkID, up); err != nil {
			s.metrics.SkippedEntities.WithLabelValues(string(source)).Inc()
			logging.Warn(ctx, "child sync failed",
				slog.String("external_id", up.ExternalID),
				slog.String("kind", string(up.Kind)),
				slog.Any("err", errs.Loggable(err)),
			)
		}
	}
	return nil
}

func (s *Service) syncChild(ctx context.Context, source park.Source, parkID string, up upstream.ProviderChild) error {
	existing, found, err := s.entities.FindChildBySourceID(ctx, parkID, up.Kind, source, up.ExternalID)
	if err != nil {
		return err
	}
	if found {
		return s.enrichChild(ctx, existing, source, up)
	}

	siblings, err := s.entities.ListChildren(ctx, parkID, up.Kind)
	if err != nil {
		return err
	}

	candidates := make([]park.Candidate, 0, len(siblings))
	index := make(map[string]ports.Child, len(siblings))
	for _, c := range siblings {
		candidates = append(candidates, park.Candidate{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt})
		index[c.ID] = c
	}

	if match, ok := park.BestMatch(up.Name, candidates, s.matching.ChildThreshold); ok {
		matched := index[match.ID]
		if err := s.enrichChild(ctx, matched, source, up); err != nil {
			return err
		}
		confidence := park.DiceCoefficient(park.NormalizeName(up.Name), park.NormalizeName(match.Name))
		return s.recordMapping(ctx, matched.ID, up.Kind, source, up.ExternalID, confidence, ports.MappingMethodFuzzyName)
	}

	child := ports.Child{
		ID:        uuid.NewString(),
		ParkID:    parkID,
		Kind:      up.Kind,
		Name:      up.Name,
		Slug:      park.Slugify(up.Name),
		CreatedAt: s.now().UTC(),
	}
	attachChildSourceID(&child, source, up.ExternalID)

	created, err := s.entities.CreateChild(ctx, child)
	if err != nil {
		if !errors.Is(err, ports.ErrDuplicateKey) {
			return err
		}
		// Slug already taken inside this park: same real entity seen under a
		// different source id. Fold into the existing row instead.
		racing, found, findErr := s.entities.FindChildBySlug(ctx, parkID, up.Kind, child.Slug)
		if findErr != nil {
			return findErr
		}
		if !found {
			return errs.Wrap(ports.ErrDuplicateKey, "insert child")
		}
		return s.enrichChild(ctx, racing, source, up)
	}

	return s.recordMapping(ctx, created.ID, up.Kind, source, up.ExternalID, 1.0, ports.MappingMethodExactID)
}

func (s *Service) enrichChild(ctx context.Context, stored ports.Child, source park.Source, up upstream.ProviderChild) error {
	before := stored
	attachChildSourceID(&stored, source, up.ExternalID)
	if stored == before {
		return nil
	}
	return s.entities.UpdateChild(ctx, stored)
}

// syncSchedule upserts provider schedule entries and invalidates the status
// memoization for the park whenever anything changed.
func (s *Service) syncSchedule(ctx context.Context, source park.Source, provider upstream.Provider, parkID, parkExternalID string) error {
	entries, err := provider.FetchSchedule(ctx, parkExternalID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	changed := 0
	for _, up := range entries {
		if up.Date == "" || up.Type == "" {
			continue
		}
		entry := ports.ScheduleEntry{
			ID:          uuid.NewString(),
			ParkID:      parkID,
			Date:        up.Date,
			Type:        park.ScheduleType(up.Type),
			OpeningTime: up.OpeningTime,
			ClosingTime: up.ClosingTime,
		}
		if err := s.schedules.UpsertEntry(ctx, entry); err != nil {
			logging.Warn(ctx, "schedule upsert failed",
				slog.String("date", up.Date),
				slog.Any("err", errs.Loggable(err)),
			)
			continue
		}
		changed++
	}

	if changed == 0 {
		return nil
	}

	// Schedule data is the authoritative status input; drop the memoized
	// answer immediately instead of waiting out the TTL.
	if err := s.cache.Delete(ctx, "status:"+parkID); err != nil {
		logging.Warn(ctx, "status cache invalidation failed", slog.Any("err", errs.Loggable(err)))
	}
	if err := s.publisher.Publish(ctx, ports.SubjectScheduleChanged, map[string]any{
		"parkId": parkID,
		"source": string(source),
	}); err != nil {
		logging.Warn(ctx, "schedule event publish failed", slog.Any("err", errs.Loggable(err)))
	}
	return nil
}

func (s *Service) recordMapping(ctx context.Context, entityID string, kind park.EntityKind, source park.Source, externalID string, confidence float64, method string) error {
	return s.entities.UpsertMapping(ctx, ports.EntityMapping{
		ID:         uuid.NewString(),
		EntityID:   entityID,
		EntityKind: kind,
		Source:     source,
		ExternalID: externalID,
		Confidence: confidence,
		Method:     method,
		Verified:   method == ports.MappingMethodExactID,
		CreatedAt:  s.now().UTC(),
	})
}

// attachParkSourceID sets the convenience column for source when it is still
// empty, reporting whether anything was written.
func attachParkSourceID(p *ports.Park, source park.Source, externalID string) bool {
	switch source {
	case park.SourceQueueTimes:
		if p.QueueTimesID == nil {
			if id, err := strconv.Atoi(externalID); err == nil {
				p.QueueTimesID = &id
				return true
			}
		}
	case park.SourceWartezeiten:
		if p.WartezeitenID == nil {
			value := externalID
			p.WartezeitenID = &value
			return true
		}
	case park.SourceThemeparksWiki:
		if p.ThemeparksWikiID == nil {
			value := externalID
			p.ThemeparksWikiID = &value
			return true
		}
	}
	return false
}

func attachChildSourceID(c *ports.Child, source park.Source, externalID string) {
	switch source {
	case park.SourceQueueTimes:
		if c.QueueTimesID == nil {
			if id, err := strconv.Atoi(externalID); err == nil {
				c.QueueTimesID = &id
			}
		}
	case park.SourceWartezeiten:
		if c.WartezeitenID == nil {
			value := externalID
			c.WartezeitenID = &value
		}
	case park.SourceThemeparksWiki:
		if c.ThemeparksWikiID == nil {
			value := externalID
			c.ThemeparksWikiID = &value
		}
	}
}
