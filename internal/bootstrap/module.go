package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/config"
	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/database"
	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	cacheinfra "github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/cache"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/events"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/metrics"
	sqliterepo "github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/uow"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/ratelimit"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/upstream"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
	"github.com/PArns/v4.api.park.fan-sub004/internal/server"
	"github.com/PArns/v4.api.park.fan-sub004/internal/usecase/ingest"
	"github.com/PArns/v4.api.park.fan-sub004/internal/usecase/reconcile"
	"github.com/PArns/v4.api.park.fan-sub004/internal/usecase/status"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(metrics.New),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewEntityRepository,
			fx.As(new(ports.EntityRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewScheduleRepository,
			fx.As(new(ports.ScheduleRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewTelemetryRepository,
			fx.As(new(ports.TelemetryRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(
		fx.Annotate(
			ratelimit.NewCacheLimiter,
			fx.As(new(ports.RateLimiter)),
		),
	),
	fx.Provide(providePublisher),
	fx.Provide(provideUpstreamClient),
	fx.Provide(provideProviders),
	fx.Provide(reconcile.NewService),
	fx.Provide(ingest.NewService),
	fx.Provide(status.NewService),
	fx.Provide(server.New),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

// providePublisher connects NATS when a URL is configured. Without one the
// engine still runs; events are simply dropped.
func providePublisher(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.EventPublisher, error) {
	if cfg.Nats.URL == "" {
		logging.Info(ctx, "nats url not configured, events disabled")
		return events.NoopPublisher{}, nil
	}

	pub, err := events.Connect(cfg.Nats.URL)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			pub.Close()
			return nil
		},
	})

	return pub, nil
}

func provideUpstreamClient(cfg config.Config, limiter ports.RateLimiter, m *metrics.Metrics) *upstream.Client {
	return upstream.NewClient(cfg.Upstream, limiter, m)
}

func provideProviders(client *upstream.Client, cfg config.Config) []upstream.Provider {
	return []upstream.Provider{
		upstream.NewQueueTimesProvider(client, cfg.Upstream.QueueTimesBaseURL),
		upstream.NewWartezeitenProvider(client, cfg.Upstream.WartezeitenBaseURL),
		upstream.NewThemeparksWikiProvider(client, cfg.Upstream.ThemeparksWikiBaseURL),
	}
}
