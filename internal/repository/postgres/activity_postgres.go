package postgres

import (
	"context"
	"database/sql"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// ActivityPostgres is a PostgreSQL implementation of repository.ActivityRepository.
// Inserts only; the log is never updated or pruned here.
type ActivityPostgres struct {
	db *sql.DB
}

// NewActivityPostgres creates a new ActivityPostgres repository.
func NewActivityPostgres(db *sql.DB) *ActivityPostgres {
	return &ActivityPostgres{db: db}
}

var _ repository.ActivityRepository = (*ActivityPostgres)(nil)

// Record appends one activity entry.
func (r *ActivityPostgres) Record(ctx context.Context, rec *model.ActivityRecord) error {
	const q = `
		INSERT INTO activity_log (id, document_id, user_id, action, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.DocumentID,
		rec.UserID,
		rec.Action,
		rec.Detail,
		rec.CreatedAt,
	)
	return err
}

// List returns entries newest first, optionally scoped to one document.
func (r *ActivityPostgres) List(ctx context.Context, documentID string, pq repository.PageQuery) (*repository.PageResult[model.ActivityRecord], error) {
	var (
		total int
		rows  *sql.Rows
		err   error
	)
	if documentID != "" {
		const qCount = `SELECT COUNT(*) FROM activity_log WHERE document_id = $1`
		if err = r.db.QueryRowContext(ctx, qCount, documentID).Scan(&total); err != nil {
			return nil, err
		}
		const qList = `
			SELECT id, document_id, user_id, action, detail, created_at
			FROM activity_log
			WHERE document_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		`
		rows, err = r.db.QueryContext(ctx, qList, documentID, pq.Limit, pq.Offset)
	} else {
		const qCount = `SELECT COUNT(*) FROM activity_log`
		if err = r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
			return nil, err
		}
		const qList = `
			SELECT id, document_id, user_id, action, detail, created_at
			FROM activity_log
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2
		`
		rows, err = r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ActivityRecord, 0)
	for rows.Next() {
		var (
			rec    model.ActivityRecord
			docID  sql.NullString
			userID sql.NullString
		)
		if err := rows.Scan(&rec.ID, &docID, &userID, &rec.Action, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if docID.Valid {
			rec.DocumentID = &docID.String
		}
		if userID.Valid {
			rec.UserID = &userID.String
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.ActivityRecord]{Items: items, Total: total}, nil
}
