package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/juju/clock"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// SettingsService exposes the operator-facing settings record. The values
// here are the editable surface; enforcement binds from environment
// configuration when the process starts, so edits take effect on the next
// restart.
type SettingsService interface {
	// Get returns the settings record, writing the configured defaults on
	// first read.
	Get(ctx context.Context) (*model.Settings, error)

	// Update replaces both values. Each must be positive.
	Update(ctx context.Context, maxStoragePerUser int64, trashRetentionHours int) (*model.Settings, error)
}

type settingsService struct {
	repo                repository.SettingsRepository
	defaultQuota        int64
	defaultRetentionHrs int
	clk                 clock.Clock
}

// NewSettingsService constructs the settings service. The defaults seed the
// record the first time it is read.
func NewSettingsService(repo repository.SettingsRepository, defaultQuota int64, defaultRetentionHrs int, clk clock.Clock) SettingsService {
	return &settingsService{repo: repo, defaultQuota: defaultQuota, defaultRetentionHrs: defaultRetentionHrs, clk: clk}
}

func (s *settingsService) Get(ctx context.Context) (*model.Settings, error) {
	cur, err := s.repo.Find(ctx)
	if err == nil {
		return cur, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find settings: %w", err)
	}
	now := s.clk.Now().UTC()
	seeded, err := s.repo.Upsert(ctx, &model.Settings{
		MaxStoragePerUser:   s.defaultQuota,
		TrashRetentionHours: s.defaultRetentionHrs,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}
	return seeded, nil
}

func (s *settingsService) Update(ctx context.Context, maxStoragePerUser int64, trashRetentionHours int) (*model.Settings, error) {
	if maxStoragePerUser <= 0 || trashRetentionHours <= 0 {
		return nil, ErrInvalidSetting
	}
	now := s.clk.Now().UTC()
	stored, err := s.repo.Upsert(ctx, &model.Settings{
		MaxStoragePerUser:   maxStoragePerUser,
		TrashRetentionHours: trashRetentionHours,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return stored, nil
}
