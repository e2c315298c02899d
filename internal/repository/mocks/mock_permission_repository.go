package mocks

import (
	"context"
	"time"

	"docvault/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockPermissionRepository struct {
	mock.Mock
}

func (m *MockPermissionRepository) Upsert(ctx context.Context, g *model.PermissionGrant) (*model.PermissionGrant, error) {
	args := m.Called(ctx, g)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PermissionGrant), args.Error(1)
}

func (m *MockPermissionRepository) FindTuple(ctx context.Context, documentID, userID string, capability model.Capability) (*model.PermissionGrant, error) {
	args := m.Called(ctx, documentID, userID, capability)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PermissionGrant), args.Error(1)
}

func (m *MockPermissionRepository) ListByDocument(ctx context.Context, documentID string) ([]model.PermissionGrant, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PermissionGrant), args.Error(1)
}

func (m *MockPermissionRepository) ListByUser(ctx context.Context, userID string) ([]model.PermissionGrant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PermissionGrant), args.Error(1)
}

func (m *MockPermissionRepository) Delete(ctx context.Context, documentID, userID string, capability model.Capability) (int64, error) {
	args := m.Called(ctx, documentID, userID, capability)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPermissionRepository) DeleteAllForUser(ctx context.Context, documentID, userID string) (int64, error) {
	args := m.Called(ctx, documentID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPermissionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
