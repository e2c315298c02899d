package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// FolderCatalog manages the folder tree documents are organized into.
// Folders are flat rows that nest through ParentID; deleting one releases
// its documents back to the root rather than cascading.
type FolderCatalog interface {
	// Create adds a folder for the owner. A non-nil parentID must name an
	// existing folder.
	Create(ctx context.Context, ownerID, name string, parentID *string) (*model.Folder, error)

	// Get returns a folder by id.
	Get(ctx context.Context, id string) (*model.Folder, error)

	// List returns the owner's folders in name order; an empty owner lists
	// every folder.
	List(ctx context.Context, ownerID string) ([]model.Folder, error)

	// Update renames and/or reparents a folder.
	Update(ctx context.Context, id, name string, parentID *string) (*model.Folder, error)

	// Delete removes a folder. Its documents stay active and fall back to
	// the root.
	Delete(ctx context.Context, id string) error

	// MoveDocument files an active document into a folder, or back to the
	// root when folderID is nil.
	MoveDocument(ctx context.Context, documentID string, folderID *string) error
}

type folderCatalog struct {
	folders repository.FolderRepository
	docs    repository.DocumentRepository
	clk     clock.Clock
}

// NewFolderCatalog constructs the folder service.
func NewFolderCatalog(folders repository.FolderRepository, docs repository.DocumentRepository, clk clock.Clock) FolderCatalog {
	return &folderCatalog{folders: folders, docs: docs, clk: clk}
}

func (s *folderCatalog) Create(ctx context.Context, ownerID, name string, parentID *string) (*model.Folder, error) {
	if ownerID == "" {
		return nil, ErrIDRequired
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if err := s.checkParent(ctx, parentID); err != nil {
		return nil, err
	}
	now := s.clk.Now().UTC()
	f := &model.Folder{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored, err := s.folders.Create(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return stored, nil
}

func (s *folderCatalog) Get(ctx context.Context, id string) (*model.Folder, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	f, err := s.folders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *folderCatalog) List(ctx context.Context, ownerID string) ([]model.Folder, error) {
	return s.folders.ListByOwner(ctx, ownerID)
}

func (s *folderCatalog) Update(ctx context.Context, id, name string, parentID *string) (*model.Folder, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	// A folder cannot be its own parent.
	if parentID != nil && *parentID == id {
		return nil, ErrInvalidState
	}
	if err := s.checkParent(ctx, parentID); err != nil {
		return nil, err
	}
	rows, err := s.folders.Update(ctx, id, name, parentID, s.clk.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("update folder: %w", err)
	}
	if rows == 0 {
		return nil, ErrFolderNotFound
	}
	return s.Get(ctx, id)
}

func (s *folderCatalog) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	rows, err := s.folders.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	if rows == 0 {
		return ErrFolderNotFound
	}
	return nil
}

func (s *folderCatalog) MoveDocument(ctx context.Context, documentID string, folderID *string) error {
	if documentID == "" {
		return ErrIDRequired
	}
	if err := s.checkParent(ctx, folderID); err != nil {
		return err
	}
	rows, err := s.docs.SetFolder(ctx, documentID, folderID, s.clk.Now().UTC())
	if err != nil {
		return fmt.Errorf("move document: %w", err)
	}
	if rows == 0 {
		exists, err := s.docs.Exists(ctx, documentID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		// Row is present but trashed.
		return ErrInvalidState
	}
	return nil
}

func (s *folderCatalog) checkParent(ctx context.Context, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if *parentID == "" {
		return ErrIDRequired
	}
	if _, err := s.folders.FindByID(ctx, *parentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFolderNotFound
		}
		return err
	}
	return nil
}
