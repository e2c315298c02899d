package repository

import (
	"context"

	"docvault/internal/model"
)

// ActivityRepository is the append-only audit log. Records are inserted and
// listed, never updated or deleted.
type ActivityRepository interface {
	// Record appends one activity entry.
	Record(ctx context.Context, rec *model.ActivityRecord) error

	// List returns entries newest first; documentID narrows to one document
	// when non-empty.
	List(ctx context.Context, documentID string, pq PageQuery) (*PageResult[model.ActivityRecord], error)
}
