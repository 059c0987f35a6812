package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// MedicationRepository reads medications and their schedules.
type MedicationRepository struct {
	db *sqlx.DB
}

// NewMedicationRepository constructs the repository.
func NewMedicationRepository(db *sqlx.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

// ListByAccount returns every medication of the account, paused or not.
func (r *MedicationRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Medication, error) {
	const query = `SELECT id, account_id, profile_id, name, strength, is_paused FROM medications WHERE account_id = $1 ORDER BY name ASC`
	var items []models.Medication
	if err := r.db.SelectContext(ctx, &items, query, accountID); err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	return items, nil
}

// ListSchedules returns the schedules of one medication.
func (r *MedicationRepository) ListSchedules(ctx context.Context, medicationID string) ([]models.MedicationSchedule, error) {
	const query = `SELECT id, medication_id, schedule_type, start_date, end_date, entries FROM medication_schedules WHERE medication_id = $1 ORDER BY start_date ASC`
	var items []models.MedicationSchedule
	if err := r.db.SelectContext(ctx, &items, query, medicationID); err != nil {
		return nil, fmt.Errorf("list medication schedules: %w", err)
	}
	return items, nil
}
