package repository

import (
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/model"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "parkfan.sqlite")
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
	return db
}

func intRef(v int) *int { return &v }

func strRef(v string) *string { return &v }

func timeRef(v time.Time) *time.Time { return &v }

func testPark(id, name, slug string, createdAt time.Time) ports.Park {
	return ports.Park{
		ID:        id,
		Name:      name,
		Slug:      slug,
		Timezone:  "Europe/Berlin",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}
