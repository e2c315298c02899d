package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// FolderRepository defines data access for folders. SQL only, no business
// logic.
type FolderRepository interface {
	// Create inserts a folder and returns the stored row.
	Create(ctx context.Context, f *model.Folder) (*model.Folder, error)

	// FindByID returns a folder by its ID.
	FindByID(ctx context.Context, id string) (*model.Folder, error)

	// ListByOwner returns all of an owner's folders, name order. An empty
	// owner lists every folder.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Folder, error)

	// Update renames and/or reparents a folder and reports affected rows.
	Update(ctx context.Context, id, name string, parentID *string, at time.Time) (int64, error)

	// Delete removes a folder row and reports affected rows. Documents in
	// the folder fall back to the root via the schema's ON DELETE SET NULL.
	Delete(ctx context.Context, id string) (int64, error)
}
