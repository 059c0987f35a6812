package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// AppointmentRepository reads appointments.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `a.id, a.account_id, a.profile_id, a.title, a.appointment_type, a.date, a.time, a.location, a.is_completed, a.created_at, a.updated_at`

// ListByAccount returns the account's own appointments.
func (r *AppointmentRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments a WHERE a.account_id = $1 ORDER BY a.date ASC, a.time ASC NULLS FIRST`
	var items []models.Appointment
	if err := r.db.SelectContext(ctx, &items, query, accountID); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return items, nil
}

// ListSharedWithUser returns appointments of any account shared with userID.
// The query is deliberately not scoped to an account.
func (r *AppointmentRepository) ListSharedWithUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
FROM appointments a
JOIN family_calendar_shares s ON s.event_type = 'appointment' AND s.event_id = a.id
JOIN family_calendar_share_members sm ON sm.share_id = s.id
WHERE sm.member_user_id = $1
ORDER BY a.date ASC`
	var items []models.Appointment
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list shared appointments: %w", err)
	}
	return items, nil
}

// ExistsInAccount reports whether the appointment belongs to accountID.
func (r *AppointmentRepository) ExistsInAccount(ctx context.Context, accountID, appointmentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1 AND account_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, appointmentID, accountID); err != nil {
		return false, fmt.Errorf("check appointment: %w", err)
	}
	return exists, nil
}
