package model

import "time"

// Folder groups documents for one owner. Folders may nest through ParentID;
// a nil parent means the folder sits at the owner's root. Deleting a folder
// releases its documents back to the root rather than deleting them.
type Folder struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
