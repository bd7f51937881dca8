package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/PArns/v4.api.park.fan-sub004/internal/bootstrap/config"
	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	cacheinfra "github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/cache"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/metrics"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/model"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/repository"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
	"github.com/PArns/v4.api.park.fan-sub004/internal/usecase/status"
)

func setupServer(t *testing.T) (*Server, ports.EntityRepository) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "server.sqlite")
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
		&model.KVEntry{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	entities := repository.NewEntityRepository(db)
	schedules := repository.NewScheduleRepository(db)
	telemetry := repository.NewTelemetryRepository(db)
	cache := cacheinfra.NewSQLiteCache(db)

	cfg := config.Config{
		Server: config.ServerConfig{Addr: ":0"},
		Status: config.StatusConfig{
			FallbackWindow: 30 * time.Minute,
			OperatingRatio: 0.5,
			CacheTTL:       time.Minute,
		},
	}
	statusSvc := status.NewService(entities, schedules, telemetry, cache, cfg)

	return New(cfg, entities, statusSvc, metrics.New()), entities
}

func seedPark(t *testing.T, entities ports.EntityRepository, id, name, slug string) {
	t.Helper()
	now := time.Now().UTC()
	_, err := entities.CreatePark(context.Background(), ports.Park{
		ID: id, Name: name, Slug: slug, Timezone: "UTC",
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePark() error = %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("GET /healthz status = %d, want 200", resp.Code)
	}
}

func TestListParks(t *testing.T) {
	srv, entities := setupServer(t)
	seedPark(t, entities, "p1", "Phantasialand", "phantasialand")
	seedPark(t, entities, "p2", "Europa-Park", "europa-park")

	req := httptest.NewRequest(http.MethodGet, "/parks", nil)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("GET /parks status = %d, want 200", resp.Code)
	}
	var views []struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("GET /parks returned %d parks, want 2", len(views))
	}
}

func TestParkStatusNotFound(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/parks/nope/status", nil)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("GET /parks/nope/status status = %d, want 404", resp.Code)
	}
}

func TestParkStatus(t *testing.T) {
	srv, entities := setupServer(t)
	seedPark(t, entities, "p1", "Phantasialand", "phantasialand")

	req := httptest.NewRequest(http.MethodGet, "/parks/p1/status", nil)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("GET /parks/p1/status status = %d, want 200", resp.Code)
	}
	var res status.Resolution
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// No schedule and no telemetry: fallback tier reads the park as closed.
	if res.ParkID != "p1" || res.Status != park.ParkClosed || res.Tier != status.TierTelemetry {
		t.Fatalf("resolution = %+v", res)
	}
}

func TestStatusBatch(t *testing.T) {
	srv, entities := setupServer(t)
	seedPark(t, entities, "p1", "Phantasialand", "phantasialand")
	seedPark(t, entities, "p2", "Europa-Park", "europa-park")

	body := strings.NewReader(`{"parkIds":["p1","p2"]}`)
	req := httptest.NewRequest(http.MethodPost, "/status/batch", body)
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("POST /status/batch status = %d, want 200", resp.Code)
	}
	var results []status.Resolution
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("batch returned %d resolutions, want 2", len(results))
	}
}

func TestStatusBatchRejectsEmptyBody(t *testing.T) {
	srv, _ := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/status/batch", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	srv.Handler().ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("POST /status/batch status = %d, want 400", resp.Code)
	}
}
