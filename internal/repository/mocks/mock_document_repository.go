package mocks

import (
	"context"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, f, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

func (m *MockDocumentRepository) UpdateMeta(ctx context.Context, id string, title, filename *string, at time.Time) (int64, error) {
	args := m.Called(ctx, id, title, filename, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) MarkTrashed(ctx context.Context, id string, at time.Time) (int64, error) {
	args := m.Called(ctx, id, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) ClearTrashed(ctx context.Context, id string, at time.Time) (int64, error) {
	args := m.Called(ctx, id, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) SetShared(ctx context.Context, id string, level model.ShareAccessLevel, at time.Time) (int64, error) {
	args := m.Called(ctx, id, level, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) SetFolder(ctx context.Context, id string, folderID *string, at time.Time) (int64, error) {
	args := m.Called(ctx, id, folderID, at)
	return args.Get(0).(int64), args.Error(1)
}

// PurgeTrashed mirrors the row-lock contract: an expectation returning a
// *model.Document stands for the locked trashed row, so fn runs against it
// and a fn error aborts with zero rows. Returning (nil, nil) means no
// trashed row matched; (nil, err) is a transaction failure.
func (m *MockDocumentRepository) PurgeTrashed(ctx context.Context, id string, fn func(*model.Document) error) (int64, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return 0, args.Error(1)
	}
	doc := args.Get(0).(*model.Document)
	if fn != nil {
		if err := fn(doc); err != nil {
			return 0, err
		}
	}
	return 1, args.Error(1)
}

func (m *MockDocumentRepository) ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]model.Document, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentRepository) SumActiveSizeByOwner(ctx context.Context, ownerID string) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) ListStoragePaths(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDocumentRepository) Stats(ctx context.Context, recentSince time.Time) (*repository.DocumentStats, error) {
	args := m.Called(ctx, recentSince)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.DocumentStats), args.Error(1)
}
