package repository

import (
	"context"

	"docvault/internal/model"
)

// SettingsRepository persists the single settings record. Find returns
// sql.ErrNoRows while no record has been written yet.
type SettingsRepository interface {
	Find(ctx context.Context) (*model.Settings, error)
	Upsert(ctx context.Context, s *model.Settings) (*model.Settings, error)
}
