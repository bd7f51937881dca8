package model

import "time"

// EntityMapping is the audit trail of source-id attributions. The unique
// index enforces "each source id maps to at most one canonical record" once
// reconciliation settles.
type EntityMapping struct {
	ID         string    `gorm:"column:id;type:text;primaryKey"`
	EntityID   string    `gorm:"column:entityId;type:text;not null;index:idx_entity_mappings_entity"`
	EntityKind string    `gorm:"column:entityKind;type:text;not null;uniqueIndex:uq_entity_mappings_source_external"`
	Source     string    `gorm:"column:source;type:text;not null;uniqueIndex:uq_entity_mappings_source_external"`
	ExternalID string    `gorm:"column:externalId;type:text;not null;uniqueIndex:uq_entity_mappings_source_external"`
	Confidence float64   `gorm:"column:confidence;not null"`
	Method     string    `gorm:"column:method;type:text;not null"`
	Verified   bool      `gorm:"column:verified;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:createdAt;not null"`
}

func (EntityMapping) TableName() string {
	return "entity_mappings"
}
