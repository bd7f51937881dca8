package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/config"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	cacheinfra "github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/cache"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/events"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/metrics"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/model"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/repository"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/uow"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/upstream"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

type fixture struct {
	service   *Service
	entities  ports.EntityRepository
	schedules ports.ScheduleRepository
	telemetry ports.TelemetryRepository
}

func testConfig() config.Config {
	return config.Config{
		Matching: config.MatchingConfig{ParkThreshold: 0.9, ChildThreshold: 0.85},
		Priority: config.PriorityConfig{
			ScheduleWeight:      10,
			TelemetryWeight:     5,
			AuthoritativeWeight: 1,
			TelemetryRecency:    24 * time.Hour,
		},
		Status: config.StatusConfig{FallbackWindow: 30 * time.Minute, OperatingRatio: 0.5, CacheTTL: time.Minute},
	}
}

func setupFixture(t *testing.T, providers ...upstream.Provider) *fixture {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "reconcile.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(
		&model.Park{},
		&model.Attraction{},
		&model.Show{},
		&model.Restaurant{},
		&model.QueueData{},
		&model.ScheduleEntry{},
		&model.EntityMapping{},
		&model.KVEntry{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	entities := repository.NewEntityRepository(db)
	schedules := repository.NewScheduleRepository(db)
	telemetry := repository.NewTelemetryRepository(db)

	service := NewService(
		entities,
		schedules,
		telemetry,
		uow.NewUnitOfWork(db),
		cacheinfra.NewSQLiteCache(db),
		events.NoopPublisher{},
		metrics.New(),
		providers,
		testConfig(),
	)

	return &fixture{service: service, entities: entities, schedules: schedules, telemetry: telemetry}
}

// fakeProvider serves canned payloads keyed by park external id.
type fakeProvider struct {
	source    park.Source
	parks     []upstream.ProviderPark
	children  map[string][]upstream.ProviderChild
	live      map[string][]upstream.LiveEntry
	schedules map[string][]upstream.ProviderSchedule
}

var _ upstream.Provider = (*fakeProvider)(nil)

func (f *fakeProvider) Source() park.Source { return f.source }

func (f *fakeProvider) FetchParks(context.Context) ([]upstream.ProviderPark, error) {
	return f.parks, nil
}

func (f *fakeProvider) FetchChildren(_ context.Context, parkExternalID string) ([]upstream.ProviderChild, error) {
	return f.children[parkExternalID], nil
}

func (f *fakeProvider) FetchLive(_ context.Context, parkExternalID string) ([]upstream.LiveEntry, error) {
	return f.live[parkExternalID], nil
}

func (f *fakeProvider) FetchSchedule(_ context.Context, parkExternalID string) ([]upstream.ProviderSchedule, error) {
	return f.schedules[parkExternalID], nil
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func timePtr(v time.Time) *time.Time { return &v }
