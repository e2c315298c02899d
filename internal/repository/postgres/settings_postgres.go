package postgres

import (
	"context"
	"database/sql"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// SettingsPostgres is a PostgreSQL implementation of
// repository.SettingsRepository. The table holds at most one row, pinned to
// id 1 by a check constraint.
type SettingsPostgres struct {
	db *sql.DB
}

// NewSettingsPostgres creates a new SettingsPostgres repository.
func NewSettingsPostgres(db *sql.DB) *SettingsPostgres {
	return &SettingsPostgres{db: db}
}

var _ repository.SettingsRepository = (*SettingsPostgres)(nil)

const settingsColumns = `max_storage_per_user, trash_retention_hours, created_at, updated_at`

func scanSettings(row interface{ Scan(...any) error }) (*model.Settings, error) {
	var s model.Settings
	if err := row.Scan(&s.MaxStoragePerUser, &s.TrashRetentionHours, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Find returns the settings record, or sql.ErrNoRows when none exists yet.
func (r *SettingsPostgres) Find(ctx context.Context) (*model.Settings, error) {
	const q = `SELECT ` + settingsColumns + ` FROM settings WHERE id = 1`
	return scanSettings(r.db.QueryRowContext(ctx, q))
}

// Upsert writes the singleton record, creating it on first use.
func (r *SettingsPostgres) Upsert(ctx context.Context, s *model.Settings) (*model.Settings, error) {
	const q = `
		INSERT INTO settings (id, max_storage_per_user, trash_retention_hours, created_at, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET max_storage_per_user = EXCLUDED.max_storage_per_user,
		    trash_retention_hours = EXCLUDED.trash_retention_hours,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + settingsColumns
	row := r.db.QueryRowContext(ctx, q, s.MaxStoragePerUser, s.TrashRetentionHours, s.CreatedAt, s.UpdatedAt)
	return scanSettings(row)
}
