// Package reconcile owns canonical-entity identity: per-source sync,
// pairwise merging and the periodic ghost sweep that repairs split-brain
// duplicates.
package reconcile

import (
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/config"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/metrics"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/upstream"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

type Service struct {
	entities  ports.EntityRepository
	schedules ports.ScheduleRepository
	telemetry ports.TelemetryRepository
	uow       ports.UnitOfWork
	cache     ports.Cache
	publisher ports.EventPublisher
	metrics   *metrics.Metrics
	providers map[park.Source]upstream.Provider

	matching config.MatchingConfig
	weights  park.Weights
	recency  time.Duration

	now func() time.Time
}

func NewService(
	entities ports.EntityRepository,
	schedules ports.ScheduleRepository,
	telemetry ports.TelemetryRepository,
	uow ports.UnitOfWork,
	cache ports.Cache,
	publisher ports.EventPublisher,
	m *metrics.Metrics,
	providers []upstream.Provider,
	cfg config.Config,
) *Service {
	bySource := make(map[park.Source]upstream.Provider, len(providers))
	for _, p := range providers {
		bySource[p.Source()] = p
	}

	return &Service{
		entities:  entities,
		schedules: schedules,
		telemetry: telemetry,
		uow:       uow,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		providers: bySource,
		matching:  cfg.Matching,
		weights: park.Weights{
			Schedule:      cfg.Priority.ScheduleWeight,
			Telemetry:     cfg.Priority.TelemetryWeight,
			Authoritative: cfg.Priority.AuthoritativeWeight,
		},
		recency: cfg.Priority.TelemetryRecency,
		now:     time.Now,
	}
}
