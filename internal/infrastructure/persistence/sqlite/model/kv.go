package model

import "time"

// KVEntry backs the shared cache: rate-limit locks and short-TTL status
// memoization. ExpiresAt nil means the key never expires.
type KVEntry struct {
	Key       string     `gorm:"column:key;type:text;primaryKey"`
	Value     string     `gorm:"column:value;type:text;not null"`
	ExpiresAt *time.Time `gorm:"column:expiresAt"`
	UpdatedAt time.Time  `gorm:"column:updatedAt;not null"`
}

func (KVEntry) TableName() string {
	return "cache_kv"
}
