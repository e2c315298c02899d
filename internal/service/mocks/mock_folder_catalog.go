package mocks

import (
	"context"

	"docvault/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockFolderCatalog struct {
	mock.Mock
}

func (m *MockFolderCatalog) Create(ctx context.Context, ownerID, name string, parentID *string) (*model.Folder, error) {
	args := m.Called(ctx, ownerID, name, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Folder), args.Error(1)
}

func (m *MockFolderCatalog) Get(ctx context.Context, id string) (*model.Folder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Folder), args.Error(1)
}

func (m *MockFolderCatalog) List(ctx context.Context, ownerID string) ([]model.Folder, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Folder), args.Error(1)
}

func (m *MockFolderCatalog) Update(ctx context.Context, id, name string, parentID *string) (*model.Folder, error) {
	args := m.Called(ctx, id, name, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Folder), args.Error(1)
}

func (m *MockFolderCatalog) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFolderCatalog) MoveDocument(ctx context.Context, documentID string, folderID *string) error {
	args := m.Called(ctx, documentID, folderID)
	return args.Error(0)
}
