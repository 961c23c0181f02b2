package model

import (
	"time"

	"gorm.io/datatypes"
)

// KVEntry is one durable key of the per-user key-value storage
// (chat session lists, preferences).
type KVEntry struct {
	Key       string         `gorm:"type:varchar(255);primaryKey"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
