package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, owner_id, title, filename, storage_path, size, content_type, visibility, share_access_level, folder_id, trashed_at, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var (
		d           model.Document
		storagePath sql.NullString
		accessLevel sql.NullString
		folderID    sql.NullString
		trashedAt   sql.NullTime
	)
	if err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Title,
		&d.Filename,
		&storagePath,
		&d.Size,
		&d.ContentType,
		&d.Visibility,
		&accessLevel,
		&folderID,
		&trashedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.StoragePath = storagePath.String
	d.ShareAccessLevel = model.ShareAccessLevel(accessLevel.String)
	if folderID.Valid {
		f := folderID.String
		d.FolderID = &f
	}
	if trashedAt.Valid {
		t := trashedAt.Time
		d.TrashedAt = &t
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, owner_id, title, filename, storage_path, size, content_type, visibility, share_access_level, folder_id, trashed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		doc.Filename,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		doc.Visibility,
		string(doc.ShareAccessLevel),
		doc.FolderID,
		doc.TrashedAt,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// Exists reports row presence regardless of trash state.
func (r *DocumentPostgres) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// buildFilter translates a DocumentFilter into a WHERE clause and args.
func buildFilter(f repository.DocumentFilter, startArg int) (string, []any) {
	var (
		conds []string
		args  []any
		n     = startArg
	)
	if f.OwnerID != "" {
		conds = append(conds, fmt.Sprintf("owner_id = $%d", n))
		args = append(args, f.OwnerID)
		n++
	}
	if f.Trashed != nil {
		if *f.Trashed {
			conds = append(conds, "trashed_at IS NOT NULL")
		} else {
			conds = append(conds, "trashed_at IS NULL")
		}
	}
	if f.Visibility != "" {
		conds = append(conds, fmt.Sprintf("visibility = $%d", n))
		args = append(args, string(f.Visibility))
		n++
	}
	if f.TitleSearch != "" {
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", n))
		args = append(args, "%"+f.TitleSearch+"%")
		n++
	}
	if f.FolderID != "" {
		conds = append(conds, fmt.Sprintf("folder_id = $%d", n))
		args = append(args, f.FolderID)
		n++
	}
	if f.CreatedAfter != nil {
		conds = append(conds, fmt.Sprintf("created_at > $%d", n))
		args = append(args, *f.CreatedAfter)
		n++
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns documents matching the filter using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	where, args := buildFilter(f, 1)

	qCount := `SELECT COUNT(*) FROM documents` + where
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := `SELECT ` + documentColumns + ` FROM documents` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// UpdateMeta updates title and/or filename on an active document.
func (r *DocumentPostgres) UpdateMeta(ctx context.Context, id string, title, filename *string, at time.Time) (int64, error) {
	const q = `
		UPDATE documents
		SET title = COALESCE($2, title), filename = COALESCE($3, filename), updated_at = $4
		WHERE id = $1 AND trashed_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, id, title, filename, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkTrashed sets trashed_at, but only while the document is active.
func (r *DocumentPostgres) MarkTrashed(ctx context.Context, id string, at time.Time) (int64, error) {
	const q = `UPDATE documents SET trashed_at = $2, updated_at = $2 WHERE id = $1 AND trashed_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearTrashed clears trashed_at, but only while the document is trashed.
func (r *DocumentPostgres) ClearTrashed(ctx context.Context, id string, at time.Time) (int64, error) {
	const q = `UPDATE documents SET trashed_at = NULL, updated_at = $2 WHERE id = $1 AND trashed_at IS NOT NULL`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetFolder moves an active document into a folder, or back to the root
// when folderID is nil.
func (r *DocumentPostgres) SetFolder(ctx context.Context, id string, folderID *string, at time.Time) (int64, error) {
	const q = `UPDATE documents SET folder_id = $2, updated_at = $3 WHERE id = $1 AND trashed_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id, folderID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetShared marks an active document public with the given access level.
func (r *DocumentPostgres) SetShared(ctx context.Context, id string, level model.ShareAccessLevel, at time.Time) (int64, error) {
	const q = `
		UPDATE documents
		SET visibility = $2, share_access_level = $3, updated_at = $4
		WHERE id = $1 AND trashed_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, id, string(model.VisibilityPublic), string(level), at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeTrashed deletes the row while it is still trashed, holding a row lock
// across fn. The SELECT FOR UPDATE only matches trashed rows, so a restore
// racing with the purge either wins outright (no row is locked, zero rows
// returned) or blocks until the purge commits and finds nothing to restore.
func (r *DocumentPostgres) PurgeTrashed(ctx context.Context, id string, fn func(*model.Document) error) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	const qLock = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND trashed_at IS NOT NULL FOR UPDATE`
	doc, err := scanDocument(tx.QueryRowContext(ctx, qLock, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	if fn != nil {
		if err := fn(doc); err != nil {
			return 0, err
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return rows, nil
}

// ListTrashedBefore returns documents trashed before the cutoff, oldest first.
func (r *DocumentPostgres) ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE trashed_at IS NOT NULL AND trashed_at < $1 ORDER BY trashed_at ASC`
	rows, err := r.db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}

// SumActiveSizeByOwner totals active document sizes; COALESCE keeps a missing
// sum (no rows) and null sizes at zero.
func (r *DocumentPostgres) SumActiveSizeByOwner(ctx context.Context, ownerID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(COALESCE(size, 0)), 0) FROM documents WHERE owner_id = $1 AND trashed_at IS NULL`
	var sum int64
	if err := r.db.QueryRowContext(ctx, q, ownerID).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// ListStoragePaths returns every non-null storage path, trashed rows included.
func (r *DocumentPostgres) ListStoragePaths(ctx context.Context) ([]string, error) {
	const q = `SELECT storage_path FROM documents WHERE storage_path IS NOT NULL`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Stats computes dashboard aggregates in a single query.
func (r *DocumentPostgres) Stats(ctx context.Context, recentSince time.Time) (*repository.DocumentStats, error) {
	const q = `
		SELECT
			COUNT(*) FILTER (WHERE trashed_at IS NULL),
			COUNT(*) FILTER (WHERE trashed_at IS NULL AND created_at > $1),
			COUNT(*) FILTER (WHERE trashed_at IS NULL AND visibility = $2),
			COUNT(*) FILTER (WHERE trashed_at IS NOT NULL),
			COALESCE(SUM(COALESCE(size, 0)) FILTER (WHERE trashed_at IS NULL), 0)
		FROM documents
	`
	var st repository.DocumentStats
	if err := r.db.QueryRowContext(ctx, q, recentSince, string(model.VisibilityPublic)).Scan(
		&st.Total,
		&st.Recent,
		&st.Shared,
		&st.Trashed,
		&st.StorageUsed,
	); err != nil {
		return nil, err
	}
	return &st, nil
}
