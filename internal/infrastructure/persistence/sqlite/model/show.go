package model

import "time"

type Show struct {
	ID               string    `gorm:"column:id;type:text;primaryKey"`
	ParkID           string    `gorm:"column:parkId;type:text;not null;index:idx_shows_park;uniqueIndex:uq_shows_park_slug"`
	Name             string    `gorm:"column:name;type:text;not null"`
	Slug             string    `gorm:"column:slug;type:text;not null;uniqueIndex:uq_shows_park_slug"`
	Latitude         *float64  `gorm:"column:latitude"`
	Longitude        *float64  `gorm:"column:longitude"`
	QueueTimesID     *int      `gorm:"column:queueTimesId"`
	WartezeitenID    *string   `gorm:"column:wartezeitenId;type:text"`
	ThemeparksWikiID *string   `gorm:"column:themeparksWikiId;type:text"`
	CreatedAt        time.Time `gorm:"column:createdAt;not null"`
}

func (Show) TableName() string {
	return "shows"
}
