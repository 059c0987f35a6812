package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Appointment is a dated visit or task, optionally tied to a profile.
type Appointment struct {
	ID          string     `db:"id" json:"id"`
	AccountID   string     `db:"account_id" json:"account_id"`
	ProfileID   *string    `db:"profile_id" json:"profile_id,omitempty"`
	Title       string     `db:"title" json:"title"`
	Type        string     `db:"appointment_type" json:"type"`
	Date        time.Time  `db:"date" json:"date"`
	Time        *time.Time `db:"time" json:"time,omitempty"`
	Location    *string    `db:"location" json:"location,omitempty"`
	IsCompleted bool       `db:"is_completed" json:"is_completed"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// CountdownType is a standard countdown category.
type CountdownType string

const (
	CountdownTypeCountdown   CountdownType = "countdown"
	CountdownTypeAnniversary CountdownType = "anniversary"
	CountdownTypeHoliday     CountdownType = "holiday"
	CountdownTypeTrip        CountdownType = "trip"
	CountdownTypeEvent       CountdownType = "event"
	CountdownTypeCelebration CountdownType = "celebration"
	CountdownTypeCustom      CountdownType = "custom"
)

// StandardCountdownTypes lists every standard type in display order.
var StandardCountdownTypes = []CountdownType{
	CountdownTypeCountdown,
	CountdownTypeAnniversary,
	CountdownTypeHoliday,
	CountdownTypeTrip,
	CountdownTypeEvent,
	CountdownTypeCelebration,
	CountdownTypeCustom,
}

// Countdown is a user-defined dated occasion, possibly spanning several days.
type Countdown struct {
	ID         string        `db:"id" json:"id"`
	AccountID  string        `db:"account_id" json:"account_id"`
	Title      string        `db:"title" json:"title"`
	Type       CountdownType `db:"countdown_type" json:"type"`
	CustomType *string       `db:"custom_type" json:"custom_type,omitempty"`
	Date       time.Time     `db:"date" json:"date"`
	EndDate    *time.Time    `db:"end_date" json:"end_date,omitempty"`
	GroupID    *string       `db:"group_id" json:"group_id,omitempty"`
	Notes      *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// CustomName returns the custom type name for custom-named countdowns.
func (c Countdown) CustomName() (string, bool) {
	if c.Type != CountdownTypeCustom || c.CustomType == nil || *c.CustomType == "" {
		return "", false
	}
	return *c.CustomType, true
}

// IsLegacyMultiDay reports whether the countdown must be expanded per day.
func (c Countdown) IsLegacyMultiDay() bool {
	return c.EndDate != nil && c.GroupID == nil
}

// Medication is a drug tracked for a profile.
type Medication struct {
	ID        string  `db:"id" json:"id"`
	AccountID string  `db:"account_id" json:"account_id"`
	ProfileID string  `db:"profile_id" json:"profile_id"`
	Name      string  `db:"name" json:"name"`
	Strength  *string `db:"strength" json:"strength,omitempty"`
	IsPaused  bool    `db:"is_paused" json:"is_paused"`
}

// ScheduleType distinguishes recurring schedules from on-demand ones.
type ScheduleType string

const (
	ScheduleTypeScheduled ScheduleType = "scheduled"
	ScheduleTypeAsNeeded  ScheduleType = "as_needed"
)

// MedicationSchedule groups recurrence entries active over a date range.
type MedicationSchedule struct {
	ID           string          `db:"id" json:"id"`
	MedicationID string          `db:"medication_id" json:"medication_id"`
	ScheduleType ScheduleType    `db:"schedule_type" json:"schedule_type"`
	StartDate    time.Time       `db:"start_date" json:"start_date"`
	EndDate      *time.Time      `db:"end_date" json:"end_date,omitempty"`
	Entries      ScheduleEntries `db:"entries" json:"entries"`
}

// ScheduleEntry is one dose at a clock time on a set of weekdays.
type ScheduleEntry struct {
	ID         string `json:"id"`
	Time       string `json:"time"`
	Dosage     string `json:"dosage"`
	DaysOfWeek []int  `json:"days_of_week"`
}

// Clock parses the entry's "HH:MM" time.
func (e ScheduleEntry) Clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", e.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("schedule entry %s: invalid time %q", e.ID, e.Time)
	}
	return t.Hour(), t.Minute(), nil
}

// ScheduleEntries is stored as a JSONB array.
type ScheduleEntries []ScheduleEntry

// Scan implements sql.Scanner.
func (s *ScheduleEntries) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported schedule entries type %T", src)
	}
	var entries []ScheduleEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decode schedule entries: %w", err)
	}
	*s = entries
	return nil
}

// Value implements driver.Valuer.
func (s ScheduleEntries) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ScheduleEntry(s))
}

// TodoList is a checklist, surfaced on the calendar when it has a due date.
type TodoList struct {
	ID        string     `db:"id" json:"id"`
	AccountID string     `db:"account_id" json:"account_id"`
	Title     string     `db:"title" json:"title"`
	ListType  *string    `db:"list_type" json:"list_type,omitempty"`
	DueDate   *time.Time `db:"due_date" json:"due_date,omitempty"`
}
