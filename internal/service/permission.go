package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// PermissionRegistry stores and evaluates per-(document, user) capability
// grants. IsActive is the single authorization predicate; every access
// check that is not owner- or public-share-based must funnel through it.
type PermissionRegistry interface {
	// Grant upserts a (document, user, capability) grant. Re-granting an
	// existing tuple refreshes it and replaces its expiry. expiresAt nil
	// means the grant never expires.
	Grant(ctx context.Context, documentID, userID string, capability model.Capability, grantedBy string, expiresAt *time.Time) (*model.PermissionGrant, error)

	// Revoke removes one grant; revoking an absent grant is a no-op.
	Revoke(ctx context.Context, documentID, userID string, capability model.Capability, revokedBy string) error

	// RevokeAll removes every grant the user holds on the document.
	RevokeAll(ctx context.Context, documentID, userID, revokedBy string) error

	// IsActive reports whether a live grant exists for the tuple: present,
	// and with no expiry or an expiry still in the future. Expired grants
	// are inert but left in place; expiry is evaluated here at read time.
	IsActive(ctx context.Context, documentID, userID string, capability model.Capability) (bool, error)

	// CanAccess decides whether a user may exercise a capability on a
	// document: owners always can, public shares cover VIEW (and DOWNLOAD
	// when the share level allows it), everything else requires a live
	// grant via IsActive.
	CanAccess(ctx context.Context, doc *model.Document, userID string, capability model.Capability) (bool, error)

	// ListForDocument returns all grants on a document, expired included.
	ListForDocument(ctx context.Context, documentID string) ([]model.PermissionGrant, error)

	// ListForUser returns all grants held by a user.
	ListForUser(ctx context.Context, userID string) ([]model.PermissionGrant, error)
}

type permissionRegistry struct {
	perms    repository.PermissionRepository
	activity repository.ActivityRepository
	notifier Notifier
	clk      clock.Clock
}

// NewPermissionRegistry constructs the registry service.
func NewPermissionRegistry(
	perms repository.PermissionRepository,
	activity repository.ActivityRepository,
	notifier Notifier,
	clk clock.Clock,
) PermissionRegistry {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &permissionRegistry{perms: perms, activity: activity, notifier: notifier, clk: clk}
}

func (s *permissionRegistry) Grant(ctx context.Context, documentID, userID string, capability model.Capability, grantedBy string, expiresAt *time.Time) (*model.PermissionGrant, error) {
	if documentID == "" || userID == "" {
		return nil, ErrIDRequired
	}
	g := &model.PermissionGrant{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		UserID:     userID,
		Capability: capability,
		GrantedBy:  grantedBy,
		GrantedAt:  s.clk.Now().UTC(),
		ExpiresAt:  expiresAt,
	}
	stored, err := s.perms.Upsert(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("upsert grant: %w", err)
	}

	s.record(ctx, documentID, grantedBy, model.ActionGranted,
		fmt.Sprintf("Granted %s permission to user %s", capability, userID))
	s.notifier.Publish("permission.granted", map[string]any{
		"document_id": documentID,
		"user_id":     userID,
		"capability":  string(capability),
	})
	return stored, nil
}

func (s *permissionRegistry) Revoke(ctx context.Context, documentID, userID string, capability model.Capability, revokedBy string) error {
	if documentID == "" || userID == "" {
		return ErrIDRequired
	}
	rows, err := s.perms.Delete(ctx, documentID, userID, capability)
	if err != nil {
		return fmt.Errorf("revoke grant: %w", err)
	}
	if rows > 0 {
		s.record(ctx, documentID, revokedBy, model.ActionRevoked,
			fmt.Sprintf("Revoked %s permission from user %s", capability, userID))
		s.notifier.Publish("permission.revoked", map[string]any{
			"document_id": documentID,
			"user_id":     userID,
			"capability":  string(capability),
		})
	}
	return nil
}

func (s *permissionRegistry) RevokeAll(ctx context.Context, documentID, userID, revokedBy string) error {
	if documentID == "" || userID == "" {
		return ErrIDRequired
	}
	rows, err := s.perms.DeleteAllForUser(ctx, documentID, userID)
	if err != nil {
		return fmt.Errorf("revoke all grants: %w", err)
	}
	if rows > 0 {
		s.record(ctx, documentID, revokedBy, model.ActionRevoked,
			fmt.Sprintf("Revoked all permissions from user %s", userID))
	}
	return nil
}

func (s *permissionRegistry) IsActive(ctx context.Context, documentID, userID string, capability model.Capability) (bool, error) {
	g, err := s.perms.FindTuple(ctx, documentID, userID, capability)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return g.ActiveAt(s.clk.Now().UTC()), nil
}

func (s *permissionRegistry) CanAccess(ctx context.Context, doc *model.Document, userID string, capability model.Capability) (bool, error) {
	if userID != "" && userID == doc.OwnerID {
		return true, nil
	}
	if doc.Visibility == model.VisibilityPublic && !doc.Trashed() {
		switch capability {
		case model.CapabilityView:
			return true, nil
		case model.CapabilityDownload:
			if doc.AllowsDownload() {
				return true, nil
			}
		}
	}
	if userID == "" {
		return false, nil
	}
	return s.IsActive(ctx, doc.ID, userID, capability)
}

func (s *permissionRegistry) ListForDocument(ctx context.Context, documentID string) ([]model.PermissionGrant, error) {
	if documentID == "" {
		return nil, ErrIDRequired
	}
	return s.perms.ListByDocument(ctx, documentID)
}

func (s *permissionRegistry) ListForUser(ctx context.Context, userID string) ([]model.PermissionGrant, error) {
	if userID == "" {
		return nil, ErrIDRequired
	}
	return s.perms.ListByUser(ctx, userID)
}

func (s *permissionRegistry) record(ctx context.Context, documentID, userID, action, detail string) {
	rec := &model.ActivityRecord{
		ID:        uuid.New().String(),
		Action:    action,
		Detail:    detail,
		CreatedAt: s.clk.Now().UTC(),
	}
	if documentID != "" {
		rec.DocumentID = &documentID
	}
	if userID != "" {
		rec.UserID = &userID
	}
	if err := s.activity.Record(ctx, rec); err != nil {
		log.Printf("activity record failed: action=%s err=%v", action, err)
	}
}
