package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/model"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

type ScheduleRepository struct {
	db *gorm.DB
}

var _ ports.ScheduleRepository = (*ScheduleRepository)(nil)

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *ScheduleRepository) OperatingEntry(ctx context.Context, parkID, date string) (ports.ScheduleEntry, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.ScheduleEntry{}, false, err
	}

	var row model.ScheduleEntry
	if err := db.
		Where("parkId = ? AND date = ? AND scheduleType = ?", parkID, date, string(park.ScheduleOperating)).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ScheduleEntry{}, false, nil
		}
		return ports.ScheduleEntry{}, false, errs.Wrap(err, "query operating schedule entry")
	}
	return mapScheduleEntry(row), true, nil
}

func (r *ScheduleRepository) OperatingEntries(ctx context.Context, parkIDs []string, dates []string) ([]ports.ScheduleEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(parkIDs) == 0 || len(dates) == 0 {
		return nil, nil
	}

	var rows []model.ScheduleEntry
	if err := db.
		Where("parkId IN ? AND date IN ? AND scheduleType = ?", parkIDs, dates, string(park.ScheduleOperating)).
		Order("parkId asc, date asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query operating schedule entries")
	}

	entries := make([]ports.ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, mapScheduleEntry(row))
	}
	return entries, nil
}

func (r *ScheduleRepository) UpsertEntry(ctx context.Context, e ports.ScheduleEntry) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.ScheduleEntry{
		ID:          e.ID,
		ParkID:      e.ParkID,
		Date:        e.Date,
		Type:        string(e.Type),
		OpeningTime: e.OpeningTime,
		ClosingTime: e.ClosingTime,
		IsHoliday:   e.IsHoliday,
		IsBridgeDay: e.IsBridgeDay,
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "parkId"}, {Name: "date"}, {Name: "scheduleType"}},
		DoUpdates: clause.Assignments(map[string]any{
			"openingTime": row.OpeningTime,
			"closingTime": row.ClosingTime,
			"isHoliday":   row.IsHoliday,
			"isBridgeDay": row.IsBridgeDay,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert schedule entry")
	}
	return nil
}

func (r *ScheduleRepository) HasSchedule(ctx context.Context, parkID string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.ScheduleEntry{}).Where("parkId = ?", parkID).Limit(1).Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "count schedule entries")
	}
	return count > 0, nil
}

// RepointEntries moves schedule rows to another park. Rows whose (date, type)
// already exist on the target are dropped first; the target's entry wins, and
// keeping both would violate the per-day uniqueness.
func (r *ScheduleRepository) RepointEntries(ctx context.Context, fromParkID, toParkID string) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	if err := db.Exec(
		`DELETE FROM schedule_entries
		 WHERE parkId = ?
		   AND EXISTS (
		     SELECT 1 FROM schedule_entries w
		     WHERE w.parkId = ?
		       AND w.date = schedule_entries.date
		       AND w.scheduleType = schedule_entries.scheduleType
		   )`,
		fromParkID, toParkID,
	).Error; err != nil {
		return 0, errs.Wrap(err, "drop overlapping schedule entries")
	}

	result := db.Model(&model.ScheduleEntry{}).Where("parkId = ?", fromParkID).Update("parkId", toParkID)
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "repoint schedule entries")
	}
	return result.RowsAffected, nil
}

func mapScheduleEntry(row model.ScheduleEntry) ports.ScheduleEntry {
	return ports.ScheduleEntry{
		ID:          row.ID,
		ParkID:      row.ParkID,
		Date:        row.Date,
		Type:        park.ScheduleType(row.Type),
		OpeningTime: row.OpeningTime,
		ClosingTime: row.ClosingTime,
		IsHoliday:   row.IsHoliday,
		IsBridgeDay: row.IsBridgeDay,
	}
}
