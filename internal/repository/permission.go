package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// PermissionRepository defines data access for permission grants.
// The (document_id, user_id, capability) tuple is unique; Upsert refreshes
// the existing row on conflict instead of inserting a duplicate.
type PermissionRepository interface {
	// Upsert inserts the grant or, when the tuple already exists, refreshes
	// granted_by/granted_at and replaces expires_at. Returns the stored row.
	Upsert(ctx context.Context, g *model.PermissionGrant) (*model.PermissionGrant, error)

	// FindTuple returns the grant for the exact tuple, expired or not.
	FindTuple(ctx context.Context, documentID, userID string, capability model.Capability) (*model.PermissionGrant, error)

	// ListByDocument returns all grants on a document.
	ListByDocument(ctx context.Context, documentID string) ([]model.PermissionGrant, error)

	// ListByUser returns all grants held by a user.
	ListByUser(ctx context.Context, userID string) ([]model.PermissionGrant, error)

	// Delete removes the grant for the exact tuple.
	Delete(ctx context.Context, documentID, userID string, capability model.Capability) (int64, error)

	// DeleteAllForUser removes every grant for the (document, user) pair.
	DeleteAllForUser(ctx context.Context, documentID, userID string) (int64, error)

	// DeleteExpiredBefore garbage-collects grants whose expiry predates the cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
