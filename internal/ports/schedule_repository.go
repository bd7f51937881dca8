package ports

import (
	"context"
	"time"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
)

// ScheduleEntry is one schedule row for a park-local calendar date. Opening
// and closing instants are absolute UTC times; Date is the park-local
// YYYY-MM-DD the entry belongs to.
type ScheduleEntry struct {
	ID          string
	ParkID      string
	Date        string
	Type        park.ScheduleType
	OpeningTime *time.Time
	ClosingTime *time.Time
	IsHoliday   bool
	IsBridgeDay bool
}

type ScheduleRepository interface {
	// OperatingEntry returns the OPERATING entry for the given park-local
	// date, if any. Its presence makes the schedule authoritative for
	// status on that date.
	OperatingEntry(ctx context.Context, parkID, date string) (ScheduleEntry, bool, error)

	// OperatingEntries is the batch form: all OPERATING entries for any of
	// the given parks on any of the given dates, in one query.
	OperatingEntries(ctx context.Context, parkIDs []string, dates []string) ([]ScheduleEntry, error)

	UpsertEntry(ctx context.Context, e ScheduleEntry) error

	// HasSchedule reports whether the park has any schedule data at all,
	// feeding the merge-priority signal.
	HasSchedule(ctx context.Context, parkID string) (bool, error)

	// RepointEntries moves every schedule row of one park to another.
	RepointEntries(ctx context.Context, fromParkID, toParkID string) (int64, error)
}
