package model

import "time"

// Settings is the single operator-editable settings record. It stores the
// advertised per-user storage ceiling and trash retention; enforcement binds
// from environment configuration at startup, this record is the surface
// operators read and edit.
type Settings struct {
	MaxStoragePerUser   int64     `json:"max_storage_per_user"`
	TrashRetentionHours int       `json:"trash_retention_hours"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
