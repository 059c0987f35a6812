package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// AccountMemberRepository reads account membership rows joined with users.
type AccountMemberRepository struct {
	db *sqlx.DB
}

// NewAccountMemberRepository constructs the repository.
func NewAccountMemberRepository(db *sqlx.DB) *AccountMemberRepository {
	return &AccountMemberRepository{db: db}
}

const memberColumns = `m.id, m.account_id, m.user_id, m.role, u.email, u.display_name, m.created_at`

// ListWithUsers returns the account roster.
func (r *AccountMemberRepository) ListWithUsers(ctx context.Context, accountID string) ([]models.AccountMember, error) {
	query := `SELECT ` + memberColumns + `
FROM account_members m JOIN users u ON u.id = m.user_id
WHERE m.account_id = $1 ORDER BY m.created_at ASC`
	var members []models.AccountMember
	if err := r.db.SelectContext(ctx, &members, query, accountID); err != nil {
		return nil, fmt.Errorf("list account members: %w", err)
	}
	for i := range members {
		members[i].Source = models.MemberSourceMembership
	}
	return members, nil
}

// Find returns the membership of userID in accountID, or nil when absent.
func (r *AccountMemberRepository) Find(ctx context.Context, accountID, userID string) (*models.AccountMember, error) {
	query := `SELECT ` + memberColumns + `
FROM account_members m JOIN users u ON u.id = m.user_id
WHERE m.account_id = $1 AND m.user_id = $2`
	var member models.AccountMember
	if err := r.db.GetContext(ctx, &member, query, accountID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find account member: %w", err)
	}
	member.Source = models.MemberSourceMembership
	return &member, nil
}

// IsMember reports whether userID belongs to accountID.
func (r *AccountMemberRepository) IsMember(ctx context.Context, accountID, userID string) (bool, error) {
	member, err := r.Find(ctx, accountID, userID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}
