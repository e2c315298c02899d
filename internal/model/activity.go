package model

import "time"

// Activity action tags recorded by lifecycle and sharing operations.
const (
	ActionUploaded    = "UPLOADED"
	ActionRenamed     = "RENAMED"
	ActionTrashed     = "TRASHED"
	ActionRestored    = "RESTORED"
	ActionDeleted     = "DELETED"
	ActionAutoDeleted = "AUTO_DELETED"
	ActionShared      = "SHARED"
	ActionSharedView  = "SHARED_VIEW"
	ActionViewed      = "VIEWED"
	ActionDownloaded  = "DOWNLOADED"
	ActionGranted     = "SHARE"
	ActionRevoked     = "REVOKE_SHARE"
)

// ActivityRecord is one append-only audit log entry. Records are never
// mutated or deleted; document and user references are optional because
// some events outlive the rows they describe.
type ActivityRecord struct {
	ID         string    `json:"id"`
	DocumentID *string   `json:"document_id,omitempty"`
	UserID     *string   `json:"user_id,omitempty"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}
