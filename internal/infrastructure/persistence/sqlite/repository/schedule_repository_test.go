package repository

import (
	"context"
	"testing"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

func operatingEntry(id, parkID, date string, opening, closing time.Time) ports.ScheduleEntry {
	return ports.ScheduleEntry{
		ID:          id,
		ParkID:      parkID,
		Date:        date,
		Type:        park.ScheduleOperating,
		OpeningTime: timeRef(opening),
		ClosingTime: timeRef(closing),
	}
}

func TestUpsertEntryUpdatesOnConflict(t *testing.T) {
	repo := NewScheduleRepository(setupDB(t))
	ctx := context.Background()

	opening := time.Date(2024, 7, 15, 7, 0, 0, 0, time.UTC)
	closing := time.Date(2024, 7, 15, 20, 0, 0, 0, time.UTC)

	if err := repo.UpsertEntry(ctx, operatingEntry("s1", "p1", "2024-07-15", opening, closing)); err != nil {
		t.Fatalf("UpsertEntry() error = %v", err)
	}

	// Same park, date and type with extended hours must update, not insert.
	extended := operatingEntry("s2", "p1", "2024-07-15", opening, closing.Add(2*time.Hour))
	extended.IsHoliday = true
	if err := repo.UpsertEntry(ctx, extended); err != nil {
		t.Fatalf("UpsertEntry(update) error = %v", err)
	}

	entry, found, err := repo.OperatingEntry(ctx, "p1", "2024-07-15")
	if err != nil {
		t.Fatalf("OperatingEntry() error = %v", err)
	}
	if !found {
		t.Fatalf("OperatingEntry() expected entry")
	}
	if entry.ID != "s1" {
		t.Fatalf("OperatingEntry() id = %q, conflict must keep the original row", entry.ID)
	}
	if !entry.ClosingTime.Equal(closing.Add(2*time.Hour)) || !entry.IsHoliday {
		t.Fatalf("OperatingEntry() not updated: %+v", entry)
	}
}

func TestOperatingEntryIgnoresOtherTypes(t *testing.T) {
	repo := NewScheduleRepository(setupDB(t))
	ctx := context.Background()

	info := ports.ScheduleEntry{ID: "s1", ParkID: "p1", Date: "2024-07-15", Type: park.ScheduleInfo}
	if err := repo.UpsertEntry(ctx, info); err != nil {
		t.Fatalf("UpsertEntry() error = %v", err)
	}

	if _, found, err := repo.OperatingEntry(ctx, "p1", "2024-07-15"); err != nil || found {
		t.Fatalf("OperatingEntry() = found=%v, err=%v, want no OPERATING entry", found, err)
	}

	has, err := repo.HasSchedule(ctx, "p1")
	if err != nil {
		t.Fatalf("HasSchedule() error = %v", err)
	}
	if !has {
		t.Fatalf("HasSchedule() any entry type must count as schedule data")
	}
}

func TestOperatingEntriesBatch(t *testing.T) {
	repo := NewScheduleRepository(setupDB(t))
	ctx := context.Background()

	opening := time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC)
	closing := time.Date(2024, 7, 15, 22, 0, 0, 0, time.UTC)

	entries := []ports.ScheduleEntry{
		operatingEntry("s1", "p1", "2024-07-15", opening, closing),
		operatingEntry("s2", "p2", "2024-07-15", opening, closing),
		operatingEntry("s3", "p1", "2024-07-16", opening.AddDate(0, 0, 1), closing.AddDate(0, 0, 1)),
		operatingEntry("s4", "p3", "2024-07-15", opening, closing),
	}
	for _, e := range entries {
		if err := repo.UpsertEntry(ctx, e); err != nil {
			t.Fatalf("UpsertEntry(%s) error = %v", e.ID, err)
		}
	}

	got, err := repo.OperatingEntries(ctx, []string{"p1", "p2"}, []string{"2024-07-15"})
	if err != nil {
		t.Fatalf("OperatingEntries() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("OperatingEntries() = %d entries, want 2", len(got))
	}

	if got, err := repo.OperatingEntries(ctx, nil, []string{"2024-07-15"}); err != nil || got != nil {
		t.Fatalf("OperatingEntries(no parks) = %v, err=%v, want nil", got, err)
	}
}

func TestRepointEntriesDropsOverlap(t *testing.T) {
	repo := NewScheduleRepository(setupDB(t))
	ctx := context.Background()

	opening := time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC)
	closing := time.Date(2024, 7, 15, 22, 0, 0, 0, time.UTC)

	// Winner already has the 15th; loser has the 15th and 16th.
	if err := repo.UpsertEntry(ctx, operatingEntry("w1", "winner", "2024-07-15", opening, closing)); err != nil {
		t.Fatalf("UpsertEntry(winner) error = %v", err)
	}
	if err := repo.UpsertEntry(ctx, operatingEntry("l1", "loser", "2024-07-15", opening.Add(time.Hour), closing)); err != nil {
		t.Fatalf("UpsertEntry(loser 15th) error = %v", err)
	}
	if err := repo.UpsertEntry(ctx, operatingEntry("l2", "loser", "2024-07-16", opening.AddDate(0, 0, 1), closing.AddDate(0, 0, 1))); err != nil {
		t.Fatalf("UpsertEntry(loser 16th) error = %v", err)
	}

	moved, err := repo.RepointEntries(ctx, "loser", "winner")
	if err != nil {
		t.Fatalf("RepointEntries() error = %v", err)
	}
	if moved != 1 {
		t.Fatalf("RepointEntries() moved = %d, want 1 (overlap dropped)", moved)
	}

	kept, found, err := repo.OperatingEntry(ctx, "winner", "2024-07-15")
	if err != nil || !found {
		t.Fatalf("OperatingEntry(15th) found=%v, err=%v", found, err)
	}
	if kept.ID != "w1" || !kept.OpeningTime.Equal(opening) {
		t.Fatalf("OperatingEntry(15th) = %+v, winner's entry must survive", kept)
	}

	if _, found, _ := repo.OperatingEntry(ctx, "winner", "2024-07-16"); !found {
		t.Fatalf("OperatingEntry(16th) expected the repointed entry")
	}
	if has, _ := repo.HasSchedule(ctx, "loser"); has {
		t.Fatalf("HasSchedule(loser) expected no rows after repoint")
	}
}
