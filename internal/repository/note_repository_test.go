package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

func noteRows() *sqlmock.Rows {
	return sqlmock.NewRows(noteColumns)
}

func sampleNoteWrite(at time.Time) models.NoteWrite {
	return models.NoteWrite{
		AccountID:        "acct-1",
		UserID:           "user-1",
		LocalID:          "local-1",
		Title:            "Groceries",
		Content:          []byte(`{"ops":[]}`),
		ContentPlainText: "milk",
		CreatedAt:        at,
		UpdatedAt:        at,
	}
}

func TestNoteRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewNoteRepository(db)
	at := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO notes .* ON CONFLICT \(account_id, local_id\) DO UPDATE SET .* WHERE notes.deleted_at IS NULL AND notes.updated_at <= EXCLUDED.updated_at RETURNING id`).
		WithArgs(sqlmock.AnyArg(), "acct-1", "user-1", "local-1", "Groceries", []byte(`{"ops":[]}`), "milk", models.DefaultNoteTheme, false, at, at).
		WillReturnRows(noteRows().AddRow("remote-1", "acct-1", "user-1", "local-1", "Groceries", []byte(`{"ops":[]}`), "milk", "standard", false, at, at, nil))

	note, err := repo.Insert(context.Background(), sampleNoteWrite(at))
	require.NoError(t, err)
	assert.Equal(t, "remote-1", note.RemoteID)
	assert.False(t, note.IsDeleted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryInsertOverDeletedRow(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	at := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO notes").WillReturnRows(noteRows())
	mock.ExpectQuery(`SELECT .* FROM notes WHERE account_id = \$1 AND local_id = \$2`).
		WithArgs("acct-1", "local-1").
		WillReturnRows(noteRows().AddRow("remote-1", "acct-1", "user-1", "local-1", "Old", nil, "", "standard", false, at, at, at))

	_, err := repo.Insert(context.Background(), sampleNoteWrite(at))
	assert.True(t, errors.Is(err, ErrNoteDeleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryInsertKeepsNewerRow(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewNoteRepository(db)
	at := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	newer := at.Add(time.Hour)

	mock.ExpectQuery("INSERT INTO notes").WillReturnRows(noteRows())
	mock.ExpectQuery(`SELECT .* FROM notes WHERE account_id = \$1 AND local_id = \$2`).
		WithArgs("acct-1", "local-1").
		WillReturnRows(noteRows().AddRow("remote-1", "acct-1", "user-2", "local-1", "Other device", nil, "", "standard", false, at, newer, nil))

	_, err := repo.Insert(context.Background(), sampleNoteWrite(at))
	assert.True(t, errors.Is(err, ErrNoteStale))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewNoteRepository(db)
	at := time.Date(2025, 2, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE notes SET title = \$1, content = \$2, content_plain_text = \$3, theme = \$4, is_pinned = \$5, updated_at = \$6 WHERE account_id = \$7 AND deleted_at IS NULL AND id = \$8 AND updated_at <= \$9 RETURNING`).
		WithArgs("Groceries", []byte(`{"ops":[]}`), "milk", "standard", false, at, "acct-1", "remote-1", at).
		WillReturnRows(noteRows().AddRow("remote-1", "acct-1", "user-1", "local-1", "Groceries", nil, "milk", "standard", false, at, at, nil))

	note, err := repo.Update(context.Background(), "remote-1", sampleNoteWrite(at))
	require.NoError(t, err)
	assert.Equal(t, at, note.UpdatedAt)

	mock.ExpectQuery("UPDATE notes SET").WillReturnRows(noteRows())
	mock.ExpectQuery(`SELECT .* FROM notes WHERE account_id = \$1 AND id = \$2`).
		WithArgs("acct-1", "gone").
		WillReturnRows(noteRows())
	_, err = repo.Update(context.Background(), "gone", sampleNoteWrite(at))
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	mock.ExpectQuery("UPDATE notes SET").WillReturnRows(noteRows())
	mock.ExpectQuery(`SELECT .* FROM notes WHERE account_id = \$1 AND id = \$2`).
		WithArgs("acct-1", "remote-1").
		WillReturnRows(noteRows().AddRow("remote-1", "acct-1", "user-2", "local-1", "Other device", nil, "", "standard", false, at, at.Add(time.Hour), nil))
	_, err = repo.Update(context.Background(), "remote-1", sampleNoteWrite(at))
	assert.True(t, errors.Is(err, ErrNoteStale))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositorySoftDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewNoteRepository(db)
	at := time.Now()

	mock.ExpectExec(`UPDATE notes SET deleted_at = \$1, updated_at = \$2 WHERE account_id = \$3 AND deleted_at IS NULL AND id = \$4`).
		WithArgs(at, at, "acct-1", "remote-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.SoftDelete(context.Background(), "acct-1", "remote-1", at)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryListSince(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewNoteRepository(db)
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM notes WHERE account_id = \$1 AND deleted_at IS NULL ORDER BY updated_at DESC, id ASC`).
		WithArgs("acct-1").
		WillReturnRows(noteRows().
			AddRow("r2", "acct-1", "user-1", "l2", "B", nil, "", "standard", false, at, at.Add(time.Hour), nil).
			AddRow("r1", "acct-1", "user-1", "l1", "A", nil, "", "standard", true, at, at, nil))

	all, err := repo.ListSince(context.Background(), "acct-1", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r2", all[0].RemoteID)

	mock.ExpectQuery(`FROM notes WHERE account_id = \$1 AND deleted_at IS NULL AND updated_at > \$2 ORDER BY`).
		WithArgs("acct-1", at).
		WillReturnRows(noteRows())

	delta, err := repo.ListSince(context.Background(), "acct-1", &at)
	require.NoError(t, err)
	assert.Empty(t, delta)
	assert.NoError(t, mock.ExpectationsWereMet())
}
