package model

import "time"

// Park is a canonical park row. The per-source id columns are deliberately
// not unique: split-brain sync passes can briefly leave two rows claiming the
// same provider id, and the ghost sweep needs to see both to repair them.
type Park struct {
	ID               string    `gorm:"column:id;type:text;primaryKey"`
	Name             string    `gorm:"column:name;type:text;not null"`
	Slug             string    `gorm:"column:slug;type:text;not null;uniqueIndex:uq_parks_slug"`
	Timezone         string    `gorm:"column:timezone;type:text;not null"`
	CountryCode      *string   `gorm:"column:countryCode;type:text"`
	Latitude         *float64  `gorm:"column:latitude"`
	Longitude        *float64  `gorm:"column:longitude"`
	QueueTimesID     *int      `gorm:"column:queueTimesId;index:idx_parks_queue_times_id"`
	WartezeitenID    *string   `gorm:"column:wartezeitenId;type:text;index:idx_parks_wartezeiten_id"`
	ThemeparksWikiID *string   `gorm:"column:themeparksWikiId;type:text;index:idx_parks_themeparks_wiki_id"`
	CreatedAt        time.Time `gorm:"column:createdAt;not null"`
	UpdatedAt        time.Time `gorm:"column:updatedAt;not null"`
}

func (Park) TableName() string {
	return "parks"
}
