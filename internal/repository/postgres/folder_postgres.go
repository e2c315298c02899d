package postgres

import (
	"context"
	"database/sql"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// FolderPostgres is a PostgreSQL implementation of repository.FolderRepository.
type FolderPostgres struct {
	db *sql.DB
}

// NewFolderPostgres creates a new FolderPostgres repository.
func NewFolderPostgres(db *sql.DB) *FolderPostgres {
	return &FolderPostgres{db: db}
}

var _ repository.FolderRepository = (*FolderPostgres)(nil)

const folderColumns = `id, owner_id, name, parent_id, created_at, updated_at`

func scanFolder(row interface{ Scan(...any) error }) (*model.Folder, error) {
	var (
		f      model.Folder
		parent sql.NullString
	)
	if err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &parent, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		p := parent.String
		f.ParentID = &p
	}
	return &f, nil
}

// Create inserts a folder row and returns the stored record.
func (r *FolderPostgres) Create(ctx context.Context, f *model.Folder) (*model.Folder, error) {
	const q = `
		INSERT INTO folders (id, owner_id, name, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + folderColumns
	row := r.db.QueryRowContext(ctx, q, f.ID, f.OwnerID, f.Name, f.ParentID, f.CreatedAt, f.UpdatedAt)
	return scanFolder(row)
}

// FindByID fetches a single folder by its ID.
func (r *FolderPostgres) FindByID(ctx context.Context, id string) (*model.Folder, error) {
	const q = `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`
	return scanFolder(r.db.QueryRowContext(ctx, q, id))
}

// ListByOwner returns folders in name order, scoped to an owner when given.
func (r *FolderPostgres) ListByOwner(ctx context.Context, ownerID string) ([]model.Folder, error) {
	q := `SELECT ` + folderColumns + ` FROM folders`
	var args []any
	if ownerID != "" {
		q += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	q += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Folder, 0)
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	return items, rows.Err()
}

// Update renames and/or reparents a folder.
func (r *FolderPostgres) Update(ctx context.Context, id, name string, parentID *string, at time.Time) (int64, error) {
	const q = `UPDATE folders SET name = $2, parent_id = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, name, parentID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the folder row.
func (r *FolderPostgres) Delete(ctx context.Context, id string) (int64, error) {
	const q = `DELETE FROM folders WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
