package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docvault/internal/model"
	repoMocks "docvault/internal/repository/mocks"
)

func newRegistry(mPerms *repoMocks.MockPermissionRepository, mAct *repoMocks.MockActivityRepository, notifier Notifier) PermissionRegistry {
	return NewPermissionRegistry(mPerms, mAct, notifier, testclock.NewClock(testNow))
}

func TestPermissionRegistry_Grant(t *testing.T) {
	ctx := context.Background()
	expiry := testNow.Add(24 * time.Hour)

	tests := []struct {
		name       string
		expiresAt  *time.Time
		setupMocks func(mPerms *repoMocks.MockPermissionRepository, mAct *repoMocks.MockActivityRepository)
		wantErr    error
		wantEvents []string
	}{
		{
			name:      "grant with expiry",
			expiresAt: &expiry,
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository, mAct *repoMocks.MockActivityRepository) {
				mPerms.On("Upsert", ctx, mock.MatchedBy(func(g *model.PermissionGrant) bool {
					return g.DocumentID == "doc-1" &&
						g.UserID == "user-2" &&
						g.Capability == model.CapabilityView &&
						g.ExpiresAt != nil && g.ExpiresAt.Equal(expiry)
				})).Return(&model.PermissionGrant{ID: "g-1"}, nil)
				mAct.On("Record", ctx, mock.MatchedBy(func(rec *model.ActivityRecord) bool {
					return rec.Action == model.ActionGranted
				})).Return(nil)
			},
			wantEvents: []string{"permission.granted"},
		},
		{
			name:      "re-grant without expiry clears the old one",
			expiresAt: nil,
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository, mAct *repoMocks.MockActivityRepository) {
				mPerms.On("Upsert", ctx, mock.MatchedBy(func(g *model.PermissionGrant) bool {
					return g.ExpiresAt == nil
				})).Return(&model.PermissionGrant{ID: "g-1"}, nil)
				mAct.On("Record", ctx, mock.Anything).Return(nil)
			},
			wantEvents: []string{"permission.granted"},
		},
		{
			name: "repository error",
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository, mAct *repoMocks.MockActivityRepository) {
				mPerms.On("Upsert", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mPerms := new(repoMocks.MockPermissionRepository)
			mAct := new(repoMocks.MockActivityRepository)
			notifier := &recordingNotifier{}
			svc := newRegistry(mPerms, mAct, notifier)

			tt.setupMocks(mPerms, mAct)

			g, err := svc.Grant(ctx, "doc-1", "user-2", model.CapabilityView, "user-1", tt.expiresAt)

			if tt.wantErr != nil {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, g)
			}
			assert.Equal(t, tt.wantEvents, notifier.events)
			mPerms.AssertExpectations(t)
		})
	}
}

func TestPermissionRegistry_Grant_Validation(t *testing.T) {
	svc := newRegistry(new(repoMocks.MockPermissionRepository), new(repoMocks.MockActivityRepository), nil)

	_, err := svc.Grant(context.Background(), "", "user-2", model.CapabilityView, "user-1", nil)
	assert.ErrorIs(t, err, ErrIDRequired)

	_, err = svc.Grant(context.Background(), "doc-1", "", model.CapabilityView, "user-1", nil)
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestPermissionRegistry_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("revoking an existing grant records it", func(t *testing.T) {
		mPerms := new(repoMocks.MockPermissionRepository)
		mAct := new(repoMocks.MockActivityRepository)
		notifier := &recordingNotifier{}
		svc := newRegistry(mPerms, mAct, notifier)

		mPerms.On("Delete", ctx, "doc-1", "user-2", model.CapabilityView).Return(int64(1), nil)
		mAct.On("Record", ctx, mock.MatchedBy(func(rec *model.ActivityRecord) bool {
			return rec.Action == model.ActionRevoked
		})).Return(nil)

		err := svc.Revoke(ctx, "doc-1", "user-2", model.CapabilityView, "user-1")
		assert.NoError(t, err)
		assert.Equal(t, []string{"permission.revoked"}, notifier.events)
		mPerms.AssertExpectations(t)
		mAct.AssertExpectations(t)
	})

	t.Run("revoking an absent grant is a silent no-op", func(t *testing.T) {
		mPerms := new(repoMocks.MockPermissionRepository)
		mAct := new(repoMocks.MockActivityRepository)
		notifier := &recordingNotifier{}
		svc := newRegistry(mPerms, mAct, notifier)

		mPerms.On("Delete", ctx, "doc-1", "user-2", model.CapabilityView).Return(int64(0), nil)

		err := svc.Revoke(ctx, "doc-1", "user-2", model.CapabilityView, "user-1")
		assert.NoError(t, err)
		assert.Empty(t, notifier.events)
		mPerms.AssertExpectations(t)
		mAct.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	})
}

func TestPermissionRegistry_IsActive(t *testing.T) {
	ctx := context.Background()
	future := testNow.Add(time.Hour)
	past := testNow.Add(-time.Hour)

	tests := []struct {
		name       string
		setupMocks func(mPerms *repoMocks.MockPermissionRepository)
		want       bool
		wantErr    bool
	}{
		{
			name: "no grant",
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository) {
				mPerms.On("FindTuple", ctx, "doc-1", "user-2", model.CapabilityView).
					Return(nil, sql.ErrNoRows)
			},
			want: false,
		},
		{
			name: "grant without expiry",
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository) {
				mPerms.On("FindTuple", ctx, "doc-1", "user-2", model.CapabilityView).
					Return(&model.PermissionGrant{ID: "g-1"}, nil)
			},
			want: true,
		},
		{
			name: "grant with future expiry",
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository) {
				mPerms.On("FindTuple", ctx, "doc-1", "user-2", model.CapabilityView).
					Return(&model.PermissionGrant{ID: "g-1", ExpiresAt: &future}, nil)
			},
			want: true,
		},
		{
			name: "grant with past expiry is inert",
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository) {
				mPerms.On("FindTuple", ctx, "doc-1", "user-2", model.CapabilityView).
					Return(&model.PermissionGrant{ID: "g-1", ExpiresAt: &past}, nil)
			},
			want: false,
		},
		{
			name: "grant expiring exactly now is inert",
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository) {
				now := testNow
				mPerms.On("FindTuple", ctx, "doc-1", "user-2", model.CapabilityView).
					Return(&model.PermissionGrant{ID: "g-1", ExpiresAt: &now}, nil)
			},
			want: false,
		},
		{
			name: "repository error",
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository) {
				mPerms.On("FindTuple", ctx, "doc-1", "user-2", model.CapabilityView).
					Return(nil, errors.New("db fail"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mPerms := new(repoMocks.MockPermissionRepository)
			svc := newRegistry(mPerms, new(repoMocks.MockActivityRepository), nil)

			tt.setupMocks(mPerms)

			got, err := svc.IsActive(ctx, "doc-1", "user-2", model.CapabilityView)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			mPerms.AssertExpectations(t)
		})
	}
}

func TestPermissionRegistry_CanAccess(t *testing.T) {
	ctx := context.Background()
	trashedAt := testNow.Add(-time.Hour)

	publicDownloadable := &model.Document{
		ID: "doc-1", OwnerID: "owner",
		Visibility:       model.VisibilityPublic,
		ShareAccessLevel: model.ShareViewAndDownload,
		StoragePath:      "documents/a.pdf",
	}
	publicViewOnly := &model.Document{
		ID: "doc-1", OwnerID: "owner",
		Visibility:       model.VisibilityPublic,
		ShareAccessLevel: model.ShareViewOnly,
		StoragePath:      "documents/a.pdf",
	}
	private := &model.Document{ID: "doc-1", OwnerID: "owner"}

	tests := []struct {
		name       string
		doc        *model.Document
		userID     string
		capability model.Capability
		setupMocks func(mPerms *repoMocks.MockPermissionRepository)
		want       bool
	}{
		{
			name:       "owner always has access",
			doc:        private,
			userID:     "owner",
			capability: model.CapabilityEdit,
			want:       true,
		},
		{
			name:       "public share covers anonymous view",
			doc:        publicViewOnly,
			userID:     "",
			capability: model.CapabilityView,
			want:       true,
		},
		{
			name:       "view-only share does not cover download",
			doc:        publicViewOnly,
			userID:     "",
			capability: model.CapabilityDownload,
			want:       false,
		},
		{
			name:       "download share covers download",
			doc:        publicDownloadable,
			userID:     "",
			capability: model.CapabilityDownload,
			want:       true,
		},
		{
			name: "trashed public share confers nothing",
			doc: &model.Document{
				ID: "doc-1", OwnerID: "owner",
				Visibility: model.VisibilityPublic,
				TrashedAt:  &trashedAt,
			},
			userID:     "",
			capability: model.CapabilityView,
			want:       false,
		},
		{
			name:       "anonymous user gets no grant lookup",
			doc:        private,
			userID:     "",
			capability: model.CapabilityView,
			want:       false,
		},
		{
			name:       "private document falls through to grants",
			doc:        private,
			userID:     "user-2",
			capability: model.CapabilityView,
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository) {
				mPerms.On("FindTuple", ctx, "doc-1", "user-2", model.CapabilityView).
					Return(&model.PermissionGrant{ID: "g-1"}, nil)
			},
			want: true,
		},
		{
			name:       "public share still checks grants for edit",
			doc:        publicViewOnly,
			userID:     "user-2",
			capability: model.CapabilityEdit,
			setupMocks: func(mPerms *repoMocks.MockPermissionRepository) {
				mPerms.On("FindTuple", ctx, "doc-1", "user-2", model.CapabilityEdit).
					Return(nil, sql.ErrNoRows)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mPerms := new(repoMocks.MockPermissionRepository)
			svc := newRegistry(mPerms, new(repoMocks.MockActivityRepository), nil)

			if tt.setupMocks != nil {
				tt.setupMocks(mPerms)
			}

			got, err := svc.CanAccess(ctx, tt.doc, tt.userID, tt.capability)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
			mPerms.AssertExpectations(t)
		})
	}
}
