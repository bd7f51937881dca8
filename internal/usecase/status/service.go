package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/config"
	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

// Tier names the decision path a resolution took.
type Tier string

const (
	TierSchedule  Tier = "schedule"
	TierTelemetry Tier = "telemetry"
)

// Resolution is the consolidated open/closed answer for one park.
type Resolution struct {
	ParkID     string          `json:"parkId"`
	Status     park.ParkStatus `json:"status"`
	Tier       Tier            `json:"tier"`
	ResolvedAt time.Time       `json:"resolvedAt"`
}

// Service resolves consolidated park status. A schedule entry for the
// park-local date is authoritative; only its absence drops the decision to the
// queue-telemetry fallback.
type Service struct {
	entities  ports.EntityRepository
	schedules ports.ScheduleRepository
	telemetry ports.TelemetryRepository
	cache     ports.Cache

	fallbackWindow time.Duration
	operatingRatio float64
	cacheTTL       time.Duration

	now func() time.Time
}

func NewService(
	entities ports.EntityRepository,
	schedules ports.ScheduleRepository,
	telemetry ports.TelemetryRepository,
	cache ports.Cache,
	cfg config.Config,
) *Service {
	return &Service{
		entities:       entities,
		schedules:      schedules,
		telemetry:      telemetry,
		cache:          cache,
		fallbackWindow: cfg.Status.FallbackWindow,
		operatingRatio: cfg.Status.OperatingRatio,
		cacheTTL:       cfg.Status.CacheTTL,
		now:            time.Now,
	}
}

func cacheKey(parkID string) string {
	return "status:" + parkID
}

// Resolve returns the park's consolidated status, memoized for a short TTL.
// A cache miss or an unreadable cached value falls through to a fresh
// resolution; cache failures never fail the request.
func (s *Service) Resolve(ctx context.Context, parkID string) (Resolution, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "status.resolver"))

	if raw, found, err := s.cache.Get(logCtx, cacheKey(parkID)); err != nil {
		logging.Warn(logCtx, "status cache read failed", slog.Any("err", errs.Loggable(err)))
	} else if found {
		var cached Resolution
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
	}

	p, err := s.entities.GetPark(logCtx, parkID)
	if err != nil {
		return Resolution{}, err
	}

	res, err := s.resolvePark(logCtx, p)
	if err != nil {
		return Resolution{}, err
	}

	if raw, err := json.Marshal(res); err == nil {
		if err := s.cache.Set(logCtx, cacheKey(parkID), string(raw), s.cacheTTL); err != nil {
			logging.Warn(logCtx, "status cache write failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	return res, nil
}

// ResolveBatch resolves many parks with one schedule query for the whole set.
// Only parks with no schedule entry for their local date pay for telemetry
// lookups. The cache is bypassed: batch callers want coherent point-in-time
// answers.
func (s *Service) ResolveBatch(ctx context.Context, parkIDs []string) ([]Resolution, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "status.resolver"))
	now := s.now()

	parks := make([]ports.Park, 0, len(parkIDs))
	dates := make(map[string]string, len(parkIDs))
	dateSet := make(map[string]struct{})
	for _, id := range parkIDs {
		p, err := s.entities.GetPark(logCtx, id)
		if err != nil {
			return nil, err
		}
		parks = append(parks, p)
		date := park.LocalDate(now, s.location(logCtx, p))
		dates[p.ID] = date
		dateSet[date] = struct{}{}
	}

	distinctDates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		distinctDates = append(distinctDates, d)
	}
	entries, err := s.schedules.OperatingEntries(logCtx, parkIDs, distinctDates)
	if err != nil {
		return nil, errs.Wrap(err, "load operating entries")
	}

	// Parks in different timezones can share a batch, so an entry only counts
	// for the park whose own local date it carries.
	windows := make(map[string]park.ScheduleWindow, len(entries))
	for _, e := range entries {
		if e.Date != dates[e.ParkID] || e.OpeningTime == nil || e.ClosingTime == nil {
			continue
		}
		windows[e.ParkID] = park.ScheduleWindow{Opening: *e.OpeningTime, Closing: *e.ClosingTime}
	}

	out := make([]Resolution, 0, len(parks))
	for _, p := range parks {
		if w, ok := windows[p.ID]; ok {
			out = append(out, Resolution{
				ParkID:     p.ID,
				Status:     park.ScheduleStatus(now, w),
				Tier:       TierSchedule,
				ResolvedAt: now,
			})
			continue
		}

		status, err := s.fallback(logCtx, p.ID, now)
		if err != nil {
			return nil, err
		}
		out = append(out, Resolution{
			ParkID:     p.ID,
			Status:     status,
			Tier:       TierTelemetry,
			ResolvedAt: now,
		})
	}
	return out, nil
}

func (s *Service) resolvePark(ctx context.Context, p ports.Park) (Resolution, error) {
	now := s.now()
	date := park.LocalDate(now, s.location(ctx, p))

	entry, found, err := s.schedules.OperatingEntry(ctx, p.ID, date)
	if err != nil {
		return Resolution{}, errs.Wrap(err, "load operating entry")
	}
	if found && entry.OpeningTime != nil && entry.ClosingTime != nil {
		w := park.ScheduleWindow{Opening: *entry.OpeningTime, Closing: *entry.ClosingTime}
		return Resolution{
			ParkID:     p.ID,
			Status:     park.ScheduleStatus(now, w),
			Tier:       TierSchedule,
			ResolvedAt: now,
		}, nil
	}

	status, err := s.fallback(ctx, p.ID, now)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{ParkID: p.ID, Status: status, Tier: TierTelemetry, ResolvedAt: now}, nil
}

// fallback derives status from the newest queue sample of each attraction
// channel inside the recency window.
func (s *Service) fallback(ctx context.Context, parkID string, now time.Time) (park.ParkStatus, error) {
	children, err := s.entities.ListChildren(ctx, parkID, park.KindAttraction)
	if err != nil {
		return park.ParkClosed, errs.Wrap(err, "list attractions")
	}
	if len(children) == 0 {
		return park.ParkClosed, nil
	}

	ids := make([]string, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}

	samples, err := s.telemetry.LatestSamples(ctx, ids, now.Add(-s.fallbackWindow))
	if err != nil {
		return park.ParkClosed, errs.Wrap(err, "load latest samples")
	}

	obs := make([]park.ChannelObservation, 0, len(samples))
	for _, sample := range samples {
		obs = append(obs, park.ChannelObservation{
			Status:     sample.Status,
			WaitTime:   sample.WaitTime,
			ObservedAt: sample.Timestamp,
		})
	}
	return park.FallbackStatus(obs, now, s.fallbackWindow, s.operatingRatio), nil
}

// location resolves the park's timezone, falling back to UTC on a name the
// host's tz database does not know.
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
