package model

import (
	"time"

	"gorm.io/datatypes"
)

// AlertEvent records one guard state change.
type AlertEvent struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Level     string         `gorm:"index:idx_alert_level;size:64;not null" json:"level"`
	GuardID   string         `gorm:"index:idx_alert_guard;size:64;not null" json:"guard_id"`
	FromMode  string         `gorm:"size:16;not null" json:"from"`
	ToMode    string         `gorm:"size:16;not null" json:"to"`
	Cause     string         `gorm:"size:16" json:"cause"`
	Camera    bool           `json:"camera"`
	Tick      uint64         `json:"tick"`
	Target    datatypes.JSON `json:"target"`
	CreatedAt time.Time      `gorm:"index:idx_alert_created;autoCreateTime:milli" json:"created_at"`
}
