package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// ProfileRepository reads account profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// ListByAccount returns every profile of the account ordered by name.
func (r *ProfileRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Profile, error) {
	const query = `SELECT id, account_id, profile_type, full_name, preferred_name, birthday, linked_user_id, source_user_id, created_at, updated_at
FROM profiles WHERE account_id = $1 ORDER BY full_name ASC`
	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, query, accountID); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}
