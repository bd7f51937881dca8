package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/logging"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Nats      NatsConfig      `mapstructure:"nats"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Priority  PriorityConfig  `mapstructure:"priority"`
	Status    StatusConfig    `mapstructure:"status"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// NatsConfig enables event publishing when URL is non-empty.
type NatsConfig struct {
	URL string `mapstructure:"url"`
}

type UpstreamConfig struct {
	QueueTimesBaseURL     string        `mapstructure:"queue_times_base_url"`
	WartezeitenBaseURL    string        `mapstructure:"wartezeiten_base_url"`
	ThemeparksWikiBaseURL string        `mapstructure:"themeparks_wiki_base_url"`
	Timeout               time.Duration `mapstructure:"timeout"`
	RetryAttempts         int           `mapstructure:"retry_attempts"`
	DefaultBlock          time.Duration `mapstructure:"default_block"`
}

type MatchingConfig struct {
	ParkThreshold  float64 `mapstructure:"park_threshold"`
	ChildThreshold float64 `mapstructure:"child_threshold"`
}

// PriorityConfig holds the merge-winner scoring weights. They are heuristic
// and intentionally tunable rather than hard-coded.
type PriorityConfig struct {
	ScheduleWeight      int           `mapstructure:"schedule_weight"`
	TelemetryWeight     int           `mapstructure:"telemetry_weight"`
	AuthoritativeWeight int           `mapstructure:"authoritative_weight"`
	TelemetryRecency    time.Duration `mapstructure:"telemetry_recency"`
}

type StatusConfig struct {
	FallbackWindow time.Duration `mapstructure:"fallback_window"`
	OperatingRatio float64       `mapstructure:"operating_ratio"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if cfg.Database.DSN == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	if cfg.Status.OperatingRatio <= 0 || cfg.Status.OperatingRatio > 1 {
		return Config{}, errors.New("status.operating_ratio must be in (0, 1]")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "park-fan")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/parkfan.sqlite")
	v.SetDefault("server.addr", ":8030")
	v.SetDefault("nats.url", "")

	v.SetDefault("upstream.queue_times_base_url", "https://queue-times.com")
	v.SetDefault("upstream.wartezeiten_base_url", "https://api.wartezeiten.app")
	v.SetDefault("upstream.themeparks_wiki_base_url", "https://api.themeparks.wiki/v1")
	v.SetDefault("upstream.timeout", 15*time.Second)
	v.SetDefault("upstream.retry_attempts", 5)
	v.SetDefault("upstream.default_block", time.Minute)

	v.SetDefault("matching.park_threshold", 0.9)
	v.SetDefault("matching.child_threshold", 0.85)

	v.SetDefault("priority.schedule_weight", 10)
	v.SetDefault("priority.telemetry_weight", 5)
	v.SetDefault("priority.authoritative_weight", 1)
	v.SetDefault("priority.telemetry_recency", 24*time.Hour)

	v.SetDefault("status.fallback_window", 30*time.Minute)
	v.SetDefault("status.operating_ratio", 0.5)
	v.SetDefault("status.cache_ttl", time.Minute)
}
