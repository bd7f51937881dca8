package model

import "time"

// ScheduleEntry stores Date as the park-local calendar day while the opening
// and closing instants stay absolute UTC.
type ScheduleEntry struct {
	ID          string     `gorm:"column:id;type:text;primaryKey"`
	ParkID      string     `gorm:"column:parkId;type:text;not null;uniqueIndex:uq_schedule_park_date_type"`
	Date        string     `gorm:"column:date;type:text;not null;uniqueIndex:uq_schedule_park_date_type"`
	Type        string     `gorm:"column:scheduleType;type:text;not null;uniqueIndex:uq_schedule_park_date_type"`
	OpeningTime *time.Time `gorm:"column:openingTime"`
	ClosingTime *time.Time `gorm:"column:closingTime"`
	IsHoliday   bool       `gorm:"column:isHoliday;not null;default:0"`
	IsBridgeDay bool       `gorm:"column:isBridgeDay;not null;default:0"`
}

func (ScheduleEntry) TableName() string {
	return "schedule_entries"
}
