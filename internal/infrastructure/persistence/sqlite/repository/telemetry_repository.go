package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/model"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

type TelemetryRepository struct {
	db *gorm.DB
}

var _ ports.TelemetryRepository = (*TelemetryRepository)(nil)

func NewTelemetryRepository(db *gorm.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

func (r *TelemetryRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *TelemetryRepository) LatestSample(ctx context.Context, entityID string, qt park.QueueType) (ports.QueueSample, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.QueueSample{}, false, err
	}

	var row model.QueueData
	if err := db.
		Where("entityId = ? AND queueType = ?", entityID, string(qt)).
		Order("timestamp desc").
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.QueueSample{}, false, nil
		}
		return ports.QueueSample{}, false, errs.Wrap(err, "query latest sample")
	}
	return mapSample(row), true, nil
}

// LatestSamples keeps only the newest row per (entity, channel); rows are
// fetched newest-first so the first occurrence of a pair wins.
func (r *TelemetryRepository) LatestSamples(ctx context.Context, entityIDs []string, since time.Time) ([]ports.QueueSample, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(entityIDs) == 0 {
		return nil, nil
	}

	var rows []model.QueueData
	if err := db.
		Where("entityId IN ? AND timestamp >= ?", entityIDs, since).
		Order("timestamp desc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query recent samples")
	}

	type channelKey struct {
		entity string
		queue  string
	}
	seen := make(map[channelKey]bool, len(rows))
	samples := make([]ports.QueueSample, 0, len(rows))
	for _, row := range rows {
		key := channelKey{entity: row.EntityID, queue: row.QueueType}
		if seen[key] {
			continue
		}
		seen[key] = true
		samples = append(samples, mapSample(row))
	}
	return samples, nil
}

func (r *TelemetryRepository) AppendSample(ctx context.Context, s ports.QueueSample) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.QueueData{
		ID:               s.ID,
		EntityID:         s.EntityID,
		QueueType:        string(s.QueueType),
		Status:           string(s.Status),
		WaitTime:         s.WaitTime,
		ReturnStart:      s.ReturnStart,
		ReturnEnd:        s.ReturnEnd,
		AllocationStatus: s.AllocationStatus,
		Timestamp:        s.Timestamp,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert queue sample")
	}
	return nil
}

func (r *TelemetryRepository) CountSamples(ctx context.Context, entityID string) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.QueueData{}).Where("entityId = ?", entityID).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count queue samples")
	}
	return count, nil
}

func (r *TelemetryRepository) RepointSamples(ctx context.Context, fromEntityID, toEntityID string) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Model(&model.QueueData{}).Where("entityId = ?", fromEntityID).Update("entityId", toEntityID)
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "repoint queue samples")
	}
	return result.RowsAffected, nil
}

func (r *TelemetryRepository) LastSampleTime(ctx context.Context, entityIDs []string) (time.Time, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(entityIDs) == 0 {
		return time.Time{}, false, nil
	}

	var row model.QueueData
	if err := db.
		Where("entityId IN ?", entityIDs).
		Order("timestamp desc").
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, errs.Wrap(err, "query last sample time")
	}
	return row.Timestamp, true, nil
}

func mapSample(row model.QueueData) ports.QueueSample {
	return ports.QueueSample{
		ID:               row.ID,
		EntityID:         row.EntityID,
		QueueType:        park.QueueType(row.QueueType),
		Status:           park.Status(row.Status),
		WaitTime:         row.WaitTime,
		ReturnStart:      row.ReturnStart,
		ReturnEnd:        row.ReturnEnd,
		AllocationStatus: row.AllocationStatus,
		Timestamp:        row.Timestamp,
	}
}
