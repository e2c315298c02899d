package postgres

import (
	"context"
	"database/sql"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// PermissionPostgres is a PostgreSQL implementation of repository.PermissionRepository.
type PermissionPostgres struct {
	db *sql.DB
}

// NewPermissionPostgres creates a new PermissionPostgres repository.
func NewPermissionPostgres(db *sql.DB) *PermissionPostgres {
	return &PermissionPostgres{db: db}
}

var _ repository.PermissionRepository = (*PermissionPostgres)(nil)

const permissionColumns = `id, document_id, user_id, capability, granted_by, granted_at, expires_at`

func scanGrant(row interface{ Scan(...any) error }) (*model.PermissionGrant, error) {
	var (
		g         model.PermissionGrant
		expiresAt sql.NullTime
	)
	if err := row.Scan(
		&g.ID,
		&g.DocumentID,
		&g.UserID,
		&g.Capability,
		&g.GrantedBy,
		&g.GrantedAt,
		&expiresAt,
	); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		g.ExpiresAt = &t
	}
	return &g, nil
}

// Upsert inserts the grant; on tuple conflict it refreshes the existing row,
// replacing granted_by, granted_at and expires_at.
func (r *PermissionPostgres) Upsert(ctx context.Context, g *model.PermissionGrant) (*model.PermissionGrant, error) {
	const q = `
		INSERT INTO document_permissions (id, document_id, user_id, capability, granted_by, granted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT uq_permission_tuple
		DO UPDATE SET granted_by = EXCLUDED.granted_by, granted_at = EXCLUDED.granted_at, expires_at = EXCLUDED.expires_at
		RETURNING ` + permissionColumns
	row := r.db.QueryRowContext(ctx, q,
		g.ID,
		g.DocumentID,
		g.UserID,
		string(g.Capability),
		g.GrantedBy,
		g.GrantedAt,
		g.ExpiresAt,
	)
	return scanGrant(row)
}

// FindTuple returns the grant for the exact tuple, expired or not.
func (r *PermissionPostgres) FindTuple(ctx context.Context, documentID, userID string, capability model.Capability) (*model.PermissionGrant, error) {
	const q = `SELECT ` + permissionColumns + ` FROM document_permissions WHERE document_id = $1 AND user_id = $2 AND capability = $3`
	return scanGrant(r.db.QueryRowContext(ctx, q, documentID, userID, string(capability)))
}

// ListByDocument returns all grants on a document, newest first.
func (r *PermissionPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.PermissionGrant, error) {
	const q = `SELECT ` + permissionColumns + ` FROM document_permissions WHERE document_id = $1 ORDER BY granted_at DESC`
	return r.queryGrants(ctx, q, documentID)
}

// ListByUser returns all grants held by a user, newest first.
func (r *PermissionPostgres) ListByUser(ctx context.Context, userID string) ([]model.PermissionGrant, error) {
	const q = `SELECT ` + permissionColumns + ` FROM document_permissions WHERE user_id = $1 ORDER BY granted_at DESC`
	return r.queryGrants(ctx, q, userID)
}

// Delete removes the grant for the exact tuple.
func (r *PermissionPostgres) Delete(ctx context.Context, documentID, userID string, capability model.Capability) (int64, error) {
	const q = `DELETE FROM document_permissions WHERE document_id = $1 AND user_id = $2 AND capability = $3`
	res, err := r.db.ExecContext(ctx, q, documentID, userID, string(capability))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAllForUser removes every grant for the (document, user) pair.
func (r *PermissionPostgres) DeleteAllForUser(ctx context.Context, documentID, userID string) (int64, error) {
	const q = `DELETE FROM document_permissions WHERE document_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, q, documentID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpiredBefore removes grants whose expiry predates the cutoff.
func (r *PermissionPostgres) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM document_permissions WHERE expires_at IS NOT NULL AND expires_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PermissionPostgres) queryGrants(ctx context.Context, q string, args ...any) ([]model.PermissionGrant, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.PermissionGrant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *g)
	}
	return items, rows.Err()
}
