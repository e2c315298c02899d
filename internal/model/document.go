package model

import "time"

// Visibility controls who can see a document.
type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityPublic  Visibility = "PUBLIC"
)

// ShareAccessLevel qualifies what a public share allows. It is only
// meaningful while Visibility is PUBLIC.
type ShareAccessLevel string

const (
	ShareViewOnly        ShareAccessLevel = "VIEW_ONLY"
	ShareViewAndDownload ShareAccessLevel = "VIEW_AND_DOWNLOAD"
)

// Document represents a stored file in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
//
// A document is active while TrashedAt is nil, trashed while it is set, and
// gone entirely once purged. StoragePath is empty until the blob upload has
// completed.
type Document struct {
	ID               string           `json:"id"`
	OwnerID          string           `json:"owner_id"`
	Title            string           `json:"title"`
	Filename         string           `json:"filename"`
	StoragePath      string           `json:"storage_path,omitempty"`
	Size             int64            `json:"size"`
	ContentType      string           `json:"content_type"`
	Visibility       Visibility       `json:"visibility"`
	ShareAccessLevel ShareAccessLevel `json:"share_access_level,omitempty"`
	FolderID         *string          `json:"folder_id,omitempty"`
	TrashedAt        *time.Time       `json:"trashed_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Trashed reports whether the document is currently in the trash.
func (d *Document) Trashed() bool {
	return d.TrashedAt != nil
}

// AllowsDownload reports whether a public share of this document permits
// downloading the blob rather than only viewing metadata.
func (d *Document) AllowsDownload() bool {
	return d.Visibility == VisibilityPublic &&
		d.ShareAccessLevel == ShareViewAndDownload &&
		d.StoragePath != ""
}
