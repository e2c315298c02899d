package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"docvault/internal/model"
	"docvault/internal/repository"
)

func TestActivityPostgres_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewActivityPostgres(db)
	now := time.Now().UTC()
	docID := "doc-1"
	userID := "user-1"

	t.Run("with document and user", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO activity_log").
			WithArgs("a-1", &docID, &userID, "UPLOADED", "Uploaded \"x\"", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Record(context.Background(), &model.ActivityRecord{
			ID:         "a-1",
			DocumentID: &docID,
			UserID:     &userID,
			Action:     model.ActionUploaded,
			Detail:     "Uploaded \"x\"",
			CreatedAt:  now,
		})
		assert.NoError(t, err)
	})

	t.Run("system event without user", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO activity_log").
			WithArgs("a-2", &docID, nil, "AUTO_DELETED", "Permanently deleted \"x\"", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Record(context.Background(), &model.ActivityRecord{
			ID:         "a-2",
			DocumentID: &docID,
			Action:     model.ActionAutoDeleted,
			Detail:     "Permanently deleted \"x\"",
			CreatedAt:  now,
		})
		assert.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewActivityPostgres(db)
	now := time.Now().UTC()
	cols := []string{"id", "document_id", "user_id", "action", "detail", "created_at"}

	t.Run("scoped to one document", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activity_log WHERE document_id = \$1`).
			WithArgs("doc-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT (.+) FROM activity_log").
			WithArgs("doc-1", 10, 0).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("a-1", "doc-1", "user-1", "TRASHED", "Moved to trash", now))

		res, err := repo.List(context.Background(), "doc-1", repository.PageQuery{Limit: 10, Offset: 0})
		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
		assert.NotNil(t, res.Items[0].DocumentID)
	})

	t.Run("unscoped with nullable references", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM activity_log`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery("SELECT (.+) FROM activity_log").
			WithArgs(10, 0).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("a-1", "doc-1", "user-1", "TRASHED", "Moved to trash", now).
				AddRow("a-2", nil, nil, "AUTO_DELETED", "Permanently deleted", now))

		res, err := repo.List(context.Background(), "", repository.PageQuery{Limit: 10, Offset: 0})
		assert.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		assert.Nil(t, res.Items[1].DocumentID)
		assert.Nil(t, res.Items[1].UserID)
	})
}
