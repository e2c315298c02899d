package mocks

import (
	"context"
	"time"

	"docvault/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockPermissionRegistry struct {
	mock.Mock
}

func (m *MockPermissionRegistry) Grant(ctx context.Context, documentID, userID string, capability model.Capability, grantedBy string, expiresAt *time.Time) (*model.PermissionGrant, error) {
	args := m.Called(ctx, documentID, userID, capability, grantedBy, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PermissionGrant), args.Error(1)
}

func (m *MockPermissionRegistry) Revoke(ctx context.Context, documentID, userID string, capability model.Capability, revokedBy string) error {
	args := m.Called(ctx, documentID, userID, capability, revokedBy)
	return args.Error(0)
}

func (m *MockPermissionRegistry) RevokeAll(ctx context.Context, documentID, userID, revokedBy string) error {
	args := m.Called(ctx, documentID, userID, revokedBy)
	return args.Error(0)
}

func (m *MockPermissionRegistry) IsActive(ctx context.Context, documentID, userID string, capability model.Capability) (bool, error) {
	args := m.Called(ctx, documentID, userID, capability)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionRegistry) CanAccess(ctx context.Context, doc *model.Document, userID string, capability model.Capability) (bool, error) {
	args := m.Called(ctx, doc, userID, capability)
	return args.Bool(0), args.Error(1)
}

func (m *MockPermissionRegistry) ListForDocument(ctx context.Context, documentID string) ([]model.PermissionGrant, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PermissionGrant), args.Error(1)
}

func (m *MockPermissionRegistry) ListForUser(ctx context.Context, userID string) ([]model.PermissionGrant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PermissionGrant), args.Error(1)
}
