package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// DocumentFilter narrows listing queries. Zero values mean "no constraint".
type DocumentFilter struct {
	OwnerID      string
	Trashed      *bool
	Visibility   model.Visibility
	TitleSearch  string
	FolderID     string
	CreatedAfter *time.Time
}

// DocumentStats aggregates counts shown on the dashboard.
type DocumentStats struct {
	Total       int64
	Recent      int64
	Shared      int64
	Trashed     int64
	StorageUsed int64
}

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here, strictly persistence operations.
//
// The conditional mutation methods (MarkTrashed, ClearTrashed, SetShared)
// embed their state precondition in the WHERE clause and report affected
// rows, so the database evaluates the precondition and the write atomically.
// Callers interpret a zero row count.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// Exists reports whether a row with the given ID is present, trashed or not.
	Exists(ctx context.Context, id string) (bool, error)

	// List returns a paginated list of documents and total rows count for the given filter.
	List(ctx context.Context, f DocumentFilter, pq PageQuery) (*PageResult[model.Document], error)

	// UpdateMeta updates title and/or filename for an existing active document.
	UpdateMeta(ctx context.Context, id string, title, filename *string, at time.Time) (int64, error)

	// MarkTrashed sets trashed_at on an active document.
	MarkTrashed(ctx context.Context, id string, at time.Time) (int64, error)

	// ClearTrashed clears trashed_at on a trashed document.
	ClearTrashed(ctx context.Context, id string, at time.Time) (int64, error)

	// SetShared makes an active document public with the given access level.
	SetShared(ctx context.Context, id string, level model.ShareAccessLevel, at time.Time) (int64, error)

	// SetFolder moves an active document into a folder, nil meaning root.
	SetFolder(ctx context.Context, id string, folderID *string, at time.Time) (int64, error)

	// PurgeTrashed removes a document row, but only while it is trashed.
	// The row is locked for the duration: fn runs against the locked row
	// before the delete, and a non-nil fn error aborts the whole purge. A
	// concurrent restore waits on the lock and then misses its trashed_at
	// condition. Returns the number of rows removed; zero means no trashed
	// row with that id existed when the lock was requested.
	PurgeTrashed(ctx context.Context, id string, fn func(*model.Document) error) (int64, error)

	// ListTrashedBefore returns documents whose trashed_at predates the cutoff.
	ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]model.Document, error)

	// SumActiveSizeByOwner returns the byte total of the owner's non-trashed
	// documents, treating missing sizes as zero.
	SumActiveSizeByOwner(ctx context.Context, ownerID string) (int64, error)

	// ListStoragePaths returns every non-null storage path, including those
	// of trashed documents. Used by the orphan-blob sweep.
	ListStoragePaths(ctx context.Context) ([]string, error)

	// Stats returns dashboard aggregates; recentSince bounds the "recent" count.
	Stats(ctx context.Context, recentSince time.Time) (*DocumentStats, error)
}
