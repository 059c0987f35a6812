package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// ShareRepository persists family calendar shares and their members.
type ShareRepository struct {
	db *sqlx.DB
}

// NewShareRepository constructs the repository.
func NewShareRepository(db *sqlx.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

var shareColumns = []string{"s.id", "s.account_id", "s.event_id", "s.event_type", "s.shared_by_user_id", "s.created_at"}

func memberOfShare(userID string) sq.Sqlizer {
	return sq.Expr("s.id IN (SELECT share_id FROM family_calendar_share_members WHERE member_user_id = ?)", userID)
}

// SharedEventIDs returns the IDs of shared events owned by the account or
// shared with userID from another account.
func (r *ShareRepository) SharedEventIDs(ctx context.Context, accountID, userID string) (models.SharedEventIDs, error) {
	ids := models.NewSharedEventIDs()

	var scope sq.Sqlizer = sq.Eq{"s.account_id": accountID}
	if userID != "" {
		scope = sq.Or{sq.Eq{"s.account_id": accountID}, memberOfShare(userID)}
	}
	query, args, err := psql.Select("s.event_id", "s.event_type").
		From("family_calendar_shares s").
		Where(scope).
		ToSql()
	if err != nil {
		return ids, fmt.Errorf("build shared ids query: %w", err)
	}

	var rows []models.ShareRef
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return ids, fmt.Errorf("list shared event ids: %w", err)
	}
	for _, row := range rows {
		switch row.EventType {
		case models.ShareEventAppointment:
			ids.Appointments[row.EventID] = struct{}{}
		case models.ShareEventCountdown:
			ids.Countdowns[row.EventID] = struct{}{}
		}
	}
	return ids, nil
}

// ListByAccount returns every share created within the account.
func (r *ShareRepository) ListByAccount(ctx context.Context, accountID string) ([]models.FamilyCalendarShare, error) {
	return r.list(ctx, sq.Eq{"s.account_id": accountID})
}

// ListVisibleToUser returns shares of the user's accounts, shares the user
// created, and shares listing the user as a member, across accounts.
func (r *ShareRepository) ListVisibleToUser(ctx context.Context, userID string) ([]models.FamilyCalendarShare, error) {
	return r.list(ctx, sq.Or{
		sq.Expr("s.account_id IN (SELECT account_id FROM account_members WHERE user_id = ?)", userID),
		sq.Eq{"s.shared_by_user_id": userID},
		memberOfShare(userID),
	})
}

func (r *ShareRepository) list(ctx context.Context, where sq.Sqlizer) ([]models.FamilyCalendarShare, error) {
	query, args, err := psql.Select(shareColumns...).
		From("family_calendar_shares s").
		Where(where).
		OrderBy("s.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build shares query: %w", err)
	}
	var shares []models.FamilyCalendarShare
	if err := r.db.SelectContext(ctx, &shares, query, args...); err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}

// ListMembers returns the member user IDs of a share.
func (r *ShareRepository) ListMembers(ctx context.Context, shareID string) ([]string, error) {
	query, args, err := psql.Select("member_user_id").
		From("family_calendar_share_members").
		Where(sq.Eq{"share_id": shareID}).
		OrderBy("member_user_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build share members query: %w", err)
	}
	var members []string
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, fmt.Errorf("list share members: %w", err)
	}
	return members, nil
}

// Save upserts the share for its event and replaces its member set in one
// transaction. share.ID and share.CreatedAt are filled from the stored row.
func (r *ShareRepository) Save(ctx context.Context, share *models.FamilyCalendarShare, memberIDs []string) (err error) {
	if share.ID == "" {
		share.ID = uuid.NewString()
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin share transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	upsert, args, err := psql.Insert("family_calendar_shares").
		Columns("id", "account_id", "event_id", "event_type", "shared_by_user_id", "created_at").
		Values(share.ID, share.AccountID, share.EventID, share.EventType, share.SharedByUserID, share.CreatedAt).
		Suffix("ON CONFLICT (event_type, event_id) DO UPDATE SET shared_by_user_id = EXCLUDED.shared_by_user_id RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build share upsert: %w", err)
	}
	if err = tx.QueryRowxContext(ctx, upsert, args...).Scan(&share.ID, &share.CreatedAt); err != nil {
		return fmt.Errorf("upsert share: %w", err)
	}

	if err = replaceShareMembers(ctx, tx, share.ID, memberIDs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit share: %w", err)
	}
	return nil
}

func replaceShareMembers(ctx context.Context, tx *sqlx.Tx, shareID string, memberIDs []string) error {
	del, args, err := psql.Delete("family_calendar_share_members").Where(sq.Eq{"share_id": shareID}).ToSql()
	if err != nil {
		return fmt.Errorf("build share member delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		return fmt.Errorf("clear share members: %w", err)
	}
	if len(memberIDs) == 0 {
		return nil
	}

	insert := psql.Insert("family_calendar_share_members").Columns("share_id", "member_user_id")
	for _, id := range memberIDs {
		insert = insert.Values(shareID, id)
	}
	query, args, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build share member insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert share members: %w", err)
	}
	return nil
}

// Delete removes a share of the account. It reports whether a row was removed.
func (r *ShareRepository) Delete(ctx context.Context, accountID, shareID string) (bool, error) {
	query, args, err := psql.Delete("family_calendar_shares").
		Where(sq.Eq{"id": shareID, "account_id": accountID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build share delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete share: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("share rows affected: %w", err)
	}
	return affected > 0, nil
}
