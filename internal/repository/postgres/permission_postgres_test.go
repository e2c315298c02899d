package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"docvault/internal/model"
)

var grantColumns = []string{"id", "document_id", "user_id", "capability", "granted_by", "granted_at", "expires_at"}

func TestPermissionPostgres_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPermissionPostgres(db)
	now := time.Now().UTC()

	t.Run("insert with expiry", func(t *testing.T) {
		expiry := now.Add(24 * time.Hour)
		g := &model.PermissionGrant{
			ID:         "g-1",
			DocumentID: "doc-1",
			UserID:     "user-2",
			Capability: model.CapabilityView,
			GrantedBy:  "user-1",
			GrantedAt:  now,
			ExpiresAt:  &expiry,
		}

		mock.ExpectQuery("INSERT INTO document_permissions").
			WithArgs("g-1", "doc-1", "user-2", "VIEW", "user-1", now, &expiry).
			WillReturnRows(sqlmock.NewRows(grantColumns).
				AddRow("g-1", "doc-1", "user-2", "VIEW", "user-1", now, expiry))

		stored, err := repo.Upsert(context.Background(), g)
		assert.NoError(t, err)
		assert.NotNil(t, stored.ExpiresAt)
	})

	t.Run("re-grant clears expiry", func(t *testing.T) {
		g := &model.PermissionGrant{
			ID:         "g-2",
			DocumentID: "doc-1",
			UserID:     "user-2",
			Capability: model.CapabilityView,
			GrantedBy:  "user-1",
			GrantedAt:  now,
		}

		// The conflict branch keeps the original id but replaces the expiry.
		mock.ExpectQuery("INSERT INTO document_permissions").
			WithArgs("g-2", "doc-1", "user-2", "VIEW", "user-1", now, nil).
			WillReturnRows(sqlmock.NewRows(grantColumns).
				AddRow("g-1", "doc-1", "user-2", "VIEW", "user-1", now, nil))

		stored, err := repo.Upsert(context.Background(), g)
		assert.NoError(t, err)
		assert.Equal(t, "g-1", stored.ID)
		assert.Nil(t, stored.ExpiresAt)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionPostgres_FindTuple(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPermissionPostgres(db)
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM document_permissions WHERE document_id = ?").
			WithArgs("doc-1", "user-2", "EDIT").
			WillReturnRows(sqlmock.NewRows(grantColumns).
				AddRow("g-1", "doc-1", "user-2", "EDIT", "user-1", now, nil))

		g, err := repo.FindTuple(context.Background(), "doc-1", "user-2", model.CapabilityEdit)
		assert.NoError(t, err)
		assert.Equal(t, model.CapabilityEdit, g.Capability)
		assert.Nil(t, g.ExpiresAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM document_permissions WHERE document_id = ?").
			WithArgs("doc-1", "user-2", "EDIT").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindTuple(context.Background(), "doc-1", "user-2", model.CapabilityEdit)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPermissionPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPermissionPostgres(db)

	t.Run("one capability", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM document_permissions WHERE document_id = \$1 AND user_id = \$2 AND capability = \$3`).
			WithArgs("doc-1", "user-2", "VIEW").
			WillReturnResult(sqlmock.NewResult(0, 1))

		rows, err := repo.Delete(context.Background(), "doc-1", "user-2", model.CapabilityView)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), rows)
	})

	t.Run("all for user", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM document_permissions WHERE document_id = \$1 AND user_id = \$2`).
			WithArgs("doc-1", "user-2").
			WillReturnResult(sqlmock.NewResult(0, 2))

		rows, err := repo.DeleteAllForUser(context.Background(), "doc-1", "user-2")
		assert.NoError(t, err)
		assert.Equal(t, int64(2), rows)
	})

	t.Run("expired before cutoff", func(t *testing.T) {
		cutoff := time.Now().UTC()
		mock.ExpectExec(`DELETE FROM document_permissions WHERE expires_at IS NOT NULL AND expires_at < \$1`).
			WithArgs(cutoff).
			WillReturnResult(sqlmock.NewResult(0, 3))

		rows, err := repo.DeleteExpiredBefore(context.Background(), cutoff)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), rows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPermissionPostgres_ListByDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPermissionPostgres(db)
	now := time.Now().UTC()
	expiry := now.Add(time.Hour)

	mock.ExpectQuery("SELECT (.+) FROM document_permissions WHERE document_id = ?").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(grantColumns).
			AddRow("g-1", "doc-1", "user-2", "VIEW", "user-1", now, expiry).
			AddRow("g-2", "doc-1", "user-3", "EDIT", "user-1", now, nil))

	gs, err := repo.ListByDocument(context.Background(), "doc-1")
	assert.NoError(t, err)
	assert.Len(t, gs, 2)
	assert.NotNil(t, gs[0].ExpiresAt)
	assert.Nil(t, gs[1].ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
