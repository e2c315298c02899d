package mocks

import (
	"context"

	"docvault/internal/model"
	"docvault/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Record(ctx context.Context, rec *model.ActivityRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockActivityRepository) List(ctx context.Context, documentID string, pq repository.PageQuery) (*repository.PageResult[model.ActivityRecord], error) {
	args := m.Called(ctx, documentID, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.ActivityRecord]), args.Error(1)
}
