package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/PArns/v4.api.park.fan-sub004/internal/domain/park"
	"github.com/PArns/v4.api.park.fan-sub004/internal/errs"
	"github.com/PArns/v4.api.park.fan-sub004/internal/infrastructure/persistence/sqlite/model"
	"github.com/PArns/v4.api.park.fan-sub004/internal/ports"
)

type EntityRepository struct {
	db *gorm.DB
}

var _ ports.EntityRepository = (*EntityRepository)(nil)

func NewEntityRepository(db *gorm.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

func (r *EntityRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

// translateInsertError maps a unique-constraint race onto the sentinel the
// sync pipelines turn into an update.
func translateInsertError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return errs.Wrap(ports.ErrDuplicateKey, msg)
	}
	return errs.Wrap(err, msg)
}

func (r *EntityRepository) ListParks(ctx context.Context) ([]ports.Park, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Park
	if err := db.Order("createdAt asc, id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query parks")
	}

	parks := make([]ports.Park, 0, len(rows))
	for _, row := range rows {
		parks = append(parks, mapPark(row))
	}
	return parks, nil
}

func (r *EntityRepository) GetPark(ctx context.Context, id string) (ports.Park, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Park{}, err
	}

	var row model.Park
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Park{}, errs.Wrapf(ports.ErrParkNotFound, "park %s", id)
		}
		return ports.Park{}, errs.Wrap(err, "query park by id")
	}
	return mapPark(row), nil
}

func (r *EntityRepository) FindParkBySourceID(ctx context.Context, source park.Source, externalID string) (ports.Park, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Park{}, false, err
	}

	query := db.Model(&model.Park{})
	switch source {
	case park.SourceQueueTimes:
		id, convErr := strconv.Atoi(externalID)
		if convErr != nil {
			return ports.Park{}, false, errs.Wrapf(convErr, "queue-times id %q", externalID)
		}
		query = query.Where("queueTimesId = ?", id)
	case park.SourceWartezeiten:
		query = query.Where("wartezeitenId = ?", externalID)
	case park.SourceThemeparksWiki:
		query = query.Where("themeparksWikiId = ?", externalID)
	default:
		return ports.Park{}, false, fmt.Errorf("unknown source %q", source)
	}

	var row model.Park
	if err := query.Order("createdAt asc").Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Park{}, false, nil
		}
		return ports.Park{}, false, errs.Wrap(err, "query park by source id")
	}
	return mapPark(row), true, nil
}

func (r *EntityRepository) CreatePark(ctx context.Context, p ports.Park) (ports.Park, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Park{}, err
	}

	row := parkToModel(p)
	if err := db.Create(&row).Error; err != nil {
		return ports.Park{}, translateInsertError(err, "insert park")
	}
	return mapPark(row), nil
}

func (r *EntityRepository) UpdatePark(ctx context.Context, p ports.Park) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Park{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":             p.Name,
		"slug":             p.Slug,
		"timezone":         p.Timezone,
		"countryCode":      p.CountryCode,
		"latitude":         p.Latitude,
		"longitude":        p.Longitude,
		"queueTimesId":     p.QueueTimesID,
		"wartezeitenId":    p.WartezeitenID,
		"themeparksWikiId": p.ThemeparksWikiID,
		"updatedAt":        p.UpdatedAt,
	})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update park")
	}
	if result.RowsAffected == 0 {
		return errs.Wrapf(ports.ErrParkNotFound, "park %s", p.ID)
	}
	return nil
}

func (r *EntityRepository) DeletePark(ctx context.Context, id string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Where("id = ?", id).Delete(&model.Park{}).Error; err != nil {
		return errs.Wrap(err, "delete park")
	}
	return nil
}

// DuplicateParkGroups loads every park carrying at least one provider id and
// groups them in memory. Park counts are small; doing the grouping here keeps
// the SQL portable across backends.
func (r *EntityRepository) DuplicateParkGroups(ctx context.Context) ([][]ports.Park, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Park
	if err := db.
		Where("queueTimesId IS NOT NULL OR wartezeitenId IS NOT NULL OR themeparksWikiId IS NOT NULL").
		Order("createdAt asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query parks with source ids")
	}

	grouped := make(map[string][]ports.Park)
	var keys []string
	appendTo := func(key string, p ports.Park) {
		if _, seen := grouped[key]; !seen {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], p)
	}

	for _, row := range rows {
		p := mapPark(row)
		for _, source := range park.Sources {
			if ext, ok := p.ExternalID(source); ok {
				appendTo(string(source)+":"+ext, p)
			}
		}
	}

	var groups [][]ports.Park
	for _, key := range keys {
		if members := grouped[key]; len(members) > 1 {
			groups = append(groups, members)
		}
	}
	return groups, nil
}

// childRow spans the three structurally identical child tables; the kind
// picks the table at query time.
type childRow struct {
	ID               string    `gorm:"column:id"`
	ParkID           string    `gorm:"column:parkId"`
	Name             string    `gorm:"column:name"`
	Slug             string    `gorm:"column:slug"`
	Latitude         *float64  `gorm:"column:latitude"`
	Longitude        *float64  `gorm:"column:longitude"`
	QueueTimesID     *int      `gorm:"column:queueTimesId"`
	WartezeitenID    *string   `gorm:"column:wartezeitenId"`
	ThemeparksWikiID *string   `gorm:"column:themeparksWikiId"`
	CreatedAt        time.Time `gorm:"column:createdAt"`
}

func childTable(kind park.EntityKind) (string, error) {
	switch kind {
	case park.KindAttraction:
		return model.Attraction{}.TableName(), nil
	case park.KindShow:
		return model.Show{}.TableName(), nil
	case park.KindRestaurant:
		return model.Restaurant{}.TableName(), nil
	default:
		return "", fmt.Errorf("unknown child kind %q", kind)
	}
}

func (r *EntityRepository) GetChildByID(ctx context.Context, id string) (ports.Child, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Child{}, false, err
	}

	for _, kind := range ports.ChildKinds {
		table, err := childTable(kind)
		if err != nil {
			return ports.Child{}, false, err
		}

		var row childRow
		if err := db.Table(table).Where("id = ?", id).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return ports.Child{}, false, errs.Wrapf(err, "query %s by id", kind)
		}
		return mapChild(row, kind), true, nil
	}
	return ports.Child{}, false, nil
}

func (r *EntityRepository) ListChildren(ctx context.Context, parkID string, kind park.EntityKind) ([]ports.Child, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}
	table, err := childTable(kind)
	if err != nil {
		return nil, err
	}

	var rows []childRow
	if err := db.Table(table).Where("parkId = ?", parkID).Order("createdAt asc, id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrapf(err, "query %s children", kind)
	}

	children := make([]ports.Child, 0, len(rows))
	for _, row := range rows {
		children = append(children, mapChild(row, kind))
	}
	return children, nil
}

func (r *EntityRepository) FindChildBySlug(ctx context.Context, parkID string, kind park.EntityKind, slug string) (ports.Child, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Child{}, false, err
	}
	table, err := childTable(kind)
	if err != nil {
		return ports.Child{}, false, err
	}

	var row childRow
	if err := db.Table(table).Where("parkId = ? AND slug = ?", parkID, slug).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Child{}, false, nil
		}
		return ports.Child{}, false, errs.Wrapf(err, "query %s by slug", kind)
	}
	return mapChild(row, kind), true, nil
}

func (r *EntityRepository) FindChildBySourceID(ctx context.Context, parkID string, kind park.EntityKind, source park.Source, externalID string) (ports.Child, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Child{}, false, err
	}
	table, err := childTable(kind)
	if err != nil {
		return ports.Child{}, false, err
	}

	query := db.Table(table).Where("parkId = ?", parkID)
	switch source {
	case park.SourceQueueTimes:
		id, convErr := strconv.Atoi(externalID)
		if convErr != nil {
			return ports.Child{}, false, errs.Wrapf(convErr, "queue-times id %q", externalID)
		}
		query = query.Where("queueTimesId = ?", id)
	case park.SourceWartezeiten:
		query = query.Where("wartezeitenId = ?", externalID)
	case park.SourceThemeparksWiki:
		query = query.Where("themeparksWikiId = ?", externalID)
	default:
		return ports.Child{}, false, fmt.Errorf("unknown source %q", source)
	}

	var row childRow
	if err := query.Order("createdAt asc").Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Child{}, false, nil
		}
		return ports.Child{}, false, errs.Wrapf(err, "query %s by source id", kind)
	}
	return mapChild(row, kind), true, nil
}

func (r *EntityRepository) CreateChild(ctx context.Context, c ports.Child) (ports.Child, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Child{}, err
	}
	table, err := childTable(c.Kind)
	if err != nil {
		return ports.Child{}, err
	}

	row := childToRow(c)
	if err := db.Table(table).Create(&row).Error; err != nil {
		return ports.Child{}, translateInsertError(err, "insert "+string(c.Kind))
	}
	return mapChild(row, c.Kind), nil
}

func (r *EntityRepository) UpdateChild(ctx context.Context, c ports.Child) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}
	table, err := childTable(c.Kind)
	if err != nil {
		return err
	}

	result := db.Table(table).Where("id = ?", c.ID).Updates(map[string]any{
		"parkId":           c.ParkID,
		"name":             c.Name,
		"slug":             c.Slug,
		"latitude":         c.Latitude,
		"longitude":        c.Longitude,
		"queueTimesId":     c.QueueTimesID,
		"wartezeitenId":    c.WartezeitenID,
		"themeparksWikiId": c.ThemeparksWikiID,
	})
	if result.Error != nil {
		return errs.Wrapf(result.Error, "update %s", c.Kind)
	}
	if result.RowsAffected == 0 {
		return errs.Wrapf(ports.ErrChildNotFound, "%s %s", c.Kind, c.ID)
	}
	return nil
}

func (r *EntityRepository) DeleteChild(ctx context.Context, kind park.EntityKind, id string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}
	table, err := childTable(kind)
	if err != nil {
		return err
	}

	if err := db.Table(table).Where("id = ?", id).Delete(&childRow{}).Error; err != nil {
		return errs.Wrapf(err, "delete %s", kind)
	}
	return nil
}

func (r *EntityRepository) CountChildren(ctx context.Context, parkID string) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, kind := range ports.ChildKinds {
		table, err := childTable(kind)
		if err != nil {
			return 0, err
		}
		var count int64
		if err := db.Table(table).Where("parkId = ?", parkID).Count(&count).Error; err != nil {
			return 0, errs.Wrapf(err, "count %s children", kind)
		}
		total += count
	}
	return total, nil
}

func (r *EntityRepository) RepointChildren(ctx context.Context, kind park.EntityKind, fromParkID, toParkID string) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}
	table, err := childTable(kind)
	if err != nil {
		return 0, err
	}

	result := db.Table(table).Where("parkId = ?", fromParkID).Update("parkId", toParkID)
	if result.Error != nil {
		return 0, errs.Wrapf(result.Error, "repoint %s children", kind)
	}
	return result.RowsAffected, nil
}

func (r *EntityRepository) UpsertMapping(ctx context.Context, m ports.EntityMapping) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.EntityMapping{
		ID:         m.ID,
		EntityID:   m.EntityID,
		EntityKind: string(m.EntityKind),
		Source:     string(m.Source),
		ExternalID: m.ExternalID,
		Confidence: m.Confidence,
		Method:     m.Method,
		Verified:   m.Verified,
		CreatedAt:  m.CreatedAt,
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source"}, {Name: "externalId"}, {Name: "entityKind"}},
		DoUpdates: clause.Assignments(map[string]any{
			"entityId":   row.EntityID,
			"confidence": row.Confidence,
			"method":     row.Method,
			"verified":   row.Verified,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert entity mapping")
	}
	return nil
}

func (r *EntityRepository) ListMappings(ctx context.Context, entityID string) ([]ports.EntityMapping, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.EntityMapping
	if err := db.Where("entityId = ?", entityID).Order("createdAt asc, id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query entity mappings")
	}

	mappings := make([]ports.EntityMapping, 0, len(rows))
	for _, row := range rows {
		mappings = append(mappings, ports.EntityMapping{
			ID:         row.ID,
			EntityID:   row.EntityID,
			EntityKind: park.EntityKind(row.EntityKind),
			Source:     park.Source(row.Source),
			ExternalID: row.ExternalID,
			Confidence: row.Confidence,
			Method:     row.Method,
			Verified:   row.Verified,
			CreatedAt:  row.CreatedAt,
		})
	}
	return mappings, nil
}

func (r *EntityRepository) RepointMappings(ctx context.Context, fromEntityID, toEntityID string) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Model(&model.EntityMapping{}).Where("entityId = ?", fromEntityID).Update("entityId", toEntityID)
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "repoint entity mappings")
	}
	return result.RowsAffected, nil
}

func mapPark(row model.Park) ports.Park {
	return ports.Park{
		ID:               row.ID,
		Name:             row.Name,
		Slug:             row.Slug,
		Timezone:         row.Timezone,
		CountryCode:      row.CountryCode,
		Latitude:         row.Latitude,
		Longitude:        row.Longitude,
		QueueTimesID:     row.QueueTimesID,
		WartezeitenID:    row.WartezeitenID,
		ThemeparksWikiID: row.ThemeparksWikiID,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func parkToModel(p ports.Park) model.Park {
	return model.Park{
		ID:               p.ID,
		Name:             p.Name,
		Slug:             p.Slug,
		Timezone:         p.Timezone,
		CountryCode:      p.CountryCode,
		Latitude:         p.Latitude,
		Longitude:        p.Longitude,
		QueueTimesID:     p.QueueTimesID,
		WartezeitenID:    p.WartezeitenID,
		ThemeparksWikiID: p.ThemeparksWikiID,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func mapChild(row childRow, kind park.EntityKind) ports.Child {
	return ports.Child{
		ID:               row.ID,
		ParkID:           row.ParkID,
		Kind:             kind,
		Name:             row.Name,
		Slug:             row.Slug,
		Latitude:         row.Latitude,
		Longitude:        row.Longitude,
		QueueTimesID:     row.QueueTimesID,
		WartezeitenID:    row.WartezeitenID,
		ThemeparksWikiID: row.ThemeparksWikiID,
		CreatedAt:        row.CreatedAt,
	}
}

func childToRow(c ports.Child) childRow {
	return childRow{
		ID:               c.ID,
		ParkID:           c.ParkID,
		Name:             c.Name,
		Slug:             c.Slug,
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
		QueueTimesID:     c.QueueTimesID,
		WartezeitenID:    c.WartezeitenID,
		ThemeparksWikiID: c.ThemeparksWikiID,
		CreatedAt:        c.CreatedAt,
	}
}
