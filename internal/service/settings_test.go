package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docvault/internal/model"
	repoMocks "docvault/internal/repository/mocks"
)

func newSettings(mRepo *repoMocks.MockSettingsRepository) SettingsService {
	return NewSettingsService(mRepo, 200*1024*1024, 48, testclock.NewClock(testNow))
}

func TestSettingsService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("existing record", func(t *testing.T) {
		mRepo := new(repoMocks.MockSettingsRepository)
		svc := newSettings(mRepo)

		mRepo.On("Find", ctx).Return(&model.Settings{MaxStoragePerUser: 1024, TrashRetentionHours: 24}, nil)

		s, err := svc.Get(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(1024), s.MaxStoragePerUser)
		mRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("first read seeds the configured defaults", func(t *testing.T) {
		mRepo := new(repoMocks.MockSettingsRepository)
		svc := newSettings(mRepo)

		mRepo.On("Find", ctx).Return(nil, sql.ErrNoRows)
		mRepo.On("Upsert", ctx, mock.MatchedBy(func(s *model.Settings) bool {
			return s.MaxStoragePerUser == 200*1024*1024 && s.TrashRetentionHours == 48 && s.CreatedAt.Equal(testNow)
		})).Return(&model.Settings{MaxStoragePerUser: 200 * 1024 * 1024, TrashRetentionHours: 48}, nil)

		s, err := svc.Get(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 48, s.TrashRetentionHours)
		mRepo.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		mRepo := new(repoMocks.MockSettingsRepository)
		svc := newSettings(mRepo)

		mRepo.On("Find", ctx).Return(nil, errors.New("db fail"))

		_, err := svc.Get(ctx)
		assert.ErrorContains(t, err, "find settings")
	})
}

func TestSettingsService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updated", func(t *testing.T) {
		mRepo := new(repoMocks.MockSettingsRepository)
		svc := newSettings(mRepo)

		mRepo.On("Upsert", ctx, mock.MatchedBy(func(s *model.Settings) bool {
			return s.MaxStoragePerUser == 1024 && s.TrashRetentionHours == 24
		})).Return(&model.Settings{MaxStoragePerUser: 1024, TrashRetentionHours: 24}, nil)

		s, err := svc.Update(ctx, 1024, 24)
		assert.NoError(t, err)
		assert.Equal(t, int64(1024), s.MaxStoragePerUser)
		mRepo.AssertExpectations(t)
	})

	t.Run("non-positive values rejected", func(t *testing.T) {
		mRepo := new(repoMocks.MockSettingsRepository)
		svc := newSettings(mRepo)

		_, err := svc.Update(ctx, 0, 24)
		assert.ErrorIs(t, err, ErrInvalidSetting)

		_, err = svc.Update(ctx, 1024, -1)
		assert.ErrorIs(t, err, ErrInvalidSetting)

		mRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}
