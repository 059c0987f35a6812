package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

func TestShareRepositorySharedEventIDs(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectQuery(`SELECT s.event_id, s.event_type FROM family_calendar_shares s WHERE \(s.account_id = \$1 OR s.id IN \(SELECT share_id FROM family_calendar_share_members WHERE member_user_id = \$2\)\)`).
		WithArgs("acct-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "event_type"}).
			AddRow("a1", "appointment").
			AddRow("c1", "countdown"))

	ids, err := repo.SharedEventIDs(context.Background(), "acct-1", "user-1")
	require.NoError(t, err)
	assert.True(t, ids.Contains(models.ShareRef{EventID: "a1", EventType: models.ShareEventAppointment}))
	assert.True(t, ids.Contains(models.ShareRef{EventID: "c1", EventType: models.ShareEventCountdown}))
	assert.False(t, ids.Contains(models.ShareRef{EventID: "a1", EventType: models.ShareEventCountdown}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareRepositoryListVisibleToUser(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewShareRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM family_calendar_shares s WHERE \(s.account_id IN \(SELECT account_id FROM account_members WHERE user_id = \$1\) OR s.shared_by_user_id = \$2 OR s.id IN .*member_user_id = \$3\)\) ORDER BY s.created_at ASC`).
		WithArgs("user-1", "user-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "event_id", "event_type", "shared_by_user_id", "created_at"}).
			AddRow("s1", "acct-2", "a9", "appointment", "user-7", now))

	shares, err := repo.ListVisibleToUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, "user-7", shares[0].SharedByUserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareRepositorySaveReplacesMembers(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewShareRepository(db)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO family_calendar_shares .* ON CONFLICT \(event_type, event_id\) DO UPDATE`).
		WithArgs(sqlmock.AnyArg(), "acct-1", "a1", models.ShareEventAppointment, "user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("share-existing", created))
	mock.ExpectExec(`DELETE FROM family_calendar_share_members WHERE share_id = \$1`).
		WithArgs("share-existing").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO family_calendar_share_members \(share_id,member_user_id\) VALUES \(\$1,\$2\),\(\$3,\$4\) ON CONFLICT DO NOTHING`).
		WithArgs("share-existing", "user-2", "share-existing", "user-3").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	share := &models.FamilyCalendarShare{AccountID: "acct-1", EventID: "a1", EventType: models.ShareEventAppointment, SharedByUserID: "user-1"}
	require.NoError(t, repo.Save(context.Background(), share, []string{"user-2", "user-3"}))
	assert.Equal(t, "share-existing", share.ID)
	assert.Equal(t, created, share.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareRepositorySaveRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO family_calendar_shares").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("s1", time.Now()))
	mock.ExpectExec("DELETE FROM family_calendar_share_members").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	share := &models.FamilyCalendarShare{AccountID: "acct-1", EventID: "c1", EventType: models.ShareEventCountdown, SharedByUserID: "user-1"}
	require.Error(t, repo.Save(context.Background(), share, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectExec(`DELETE FROM family_calendar_shares WHERE account_id = \$1 AND id = \$2`).
		WithArgs("acct-1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "acct-1", "s1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
