package model

import "time"

// Capability is a single sharable right on a document.
type Capability string

const (
	CapabilityView     Capability = "VIEW"
	CapabilityEdit     Capability = "EDIT"
	CapabilityDownload Capability = "DOWNLOAD"
)

// PermissionGrant is one (document, user, capability) authorization tuple.
// At most one live grant exists per tuple; re-granting refreshes the
// existing row instead of duplicating it.
type PermissionGrant struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	UserID     string     `json:"user_id"`
	Capability Capability `json:"capability"`
	GrantedBy  string     `json:"granted_by"`
	GrantedAt  time.Time  `json:"granted_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// ActiveAt reports whether the grant confers its capability at the given
// instant: no expiry, or an expiry strictly in the future.
func (g *PermissionGrant) ActiveAt(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}
