package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/smap-labs/smap-compliance-api/internal/models"
)

func newDocumentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDocumentRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	document := &models.Document{
		Title:         "Anti-Bribery Policy",
		Category:      "policy",
		OwnerID:       "user-1",
		LastUpdatedBy: "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), document))
	require.NotEmpty(t, document.ID)
	require.Equal(t, models.DocumentStatusDraft, document.Status)

	rows := sqlmock.NewRows([]string{"id", "title", "category", "status", "current_version", "content", "owner_id", "last_updated", "last_updated_by", "created_at"}).
		AddRow(document.ID, "Anti-Bribery Policy", "policy", "draft", 0, "", "user-1", time.Now(), "user-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, category, status")).
		WithArgs(document.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), document.ID)
	require.NoError(t, err)
	require.Equal(t, document.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdatePartialFields(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	status := models.DocumentStatusApproved
	version := 3
	err := repo.Update(context.Background(), "doc-1", models.DocumentUpdate{
		Status:         &status,
		CurrentVersion: &version,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	status := models.DocumentStatusRejected
	err := repo.Update(context.Background(), "missing", models.DocumentUpdate{Status: &status})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "title", "category", "status", "current_version", "content", "owner_id", "last_updated", "last_updated_by", "created_at"}).
		AddRow("doc-1", "Gift Register SOP", "sop", "approved", 2, "", "user-2", time.Now(), "user-2", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, category, status")).
		WithArgs("approved", "sop").
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.DocumentFilter{
		Status:   models.DocumentStatusApproved,
		Category: "sop",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "doc-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
