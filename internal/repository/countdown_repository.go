package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// CountdownRepository reads countdowns.
type CountdownRepository struct {
	db *sqlx.DB
}

// NewCountdownRepository constructs the repository.
func NewCountdownRepository(db *sqlx.DB) *CountdownRepository {
	return &CountdownRepository{db: db}
}

const countdownColumns = `c.id, c.account_id, c.title, c.countdown_type, c.custom_type, c.date, c.end_date, c.group_id, c.notes, c.created_at, c.updated_at`

// ListByAccount returns the account's own countdowns.
func (r *CountdownRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Countdown, error) {
	query := `SELECT ` + countdownColumns + ` FROM countdowns c WHERE c.account_id = $1 ORDER BY c.date ASC`
	var items []models.Countdown
	if err := r.db.SelectContext(ctx, &items, query, accountID); err != nil {
		return nil, fmt.Errorf("list countdowns: %w", err)
	}
	return items, nil
}

// ListSharedWithUser returns countdowns of any account shared with userID.
func (r *CountdownRepository) ListSharedWithUser(ctx context.Context, userID string) ([]models.Countdown, error) {
	query := `SELECT ` + countdownColumns + `
FROM countdowns c
JOIN family_calendar_shares s ON s.event_type = 'countdown' AND s.event_id = c.id
JOIN family_calendar_share_members sm ON sm.share_id = s.id
WHERE sm.member_user_id = $1
ORDER BY c.date ASC`
	var items []models.Countdown
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list shared countdowns: %w", err)
	}
	return items, nil
}

// ExistsInAccount reports whether the countdown belongs to accountID.
func (r *CountdownRepository) ExistsInAccount(ctx context.Context, accountID, countdownID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM countdowns WHERE id = $1 AND account_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, countdownID, accountID); err != nil {
		return false, fmt.Errorf("check countdown: %w", err)
	}
	return exists, nil
}
