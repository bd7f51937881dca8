package model

import "time"

// QueueData rows are append-only; nothing ever updates one in place except
// the owner repoint during a merge.
type QueueData struct {
	ID               string     `gorm:"column:id;type:text;primaryKey"`
	EntityID         string     `gorm:"column:entityId;type:text;not null;index:idx_queue_data_entity_type_ts,priority:1"`
	QueueType        string     `gorm:"column:queueType;type:text;not null;index:idx_queue_data_entity_type_ts,priority:2"`
	Status           string     `gorm:"column:status;type:text;not null"`
	WaitTime         *int       `gorm:"column:waitTime"`
	ReturnStart      *time.Time `gorm:"column:returnStart"`
	ReturnEnd        *time.Time `gorm:"column:returnEnd"`
	AllocationStatus *string    `gorm:"column:allocationStatus;type:text"`
	Timestamp        time.Time  `gorm:"column:timestamp;not null;index:idx_queue_data_entity_type_ts,priority:3"`
}

func (QueueData) TableName() string {
	return "queue_data"
}
