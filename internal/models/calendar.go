package models

import (
	"fmt"
	"time"
)

// CalendarFilterType is the category tag every calendar event carries.
type CalendarFilterType string

const (
	FilterAppointments CalendarFilterType = "appointments"
	FilterCountdowns   CalendarFilterType = "countdowns"
	FilterBirthdays    CalendarFilterType = "birthdays"
	FilterMedications  CalendarFilterType = "medications"
	FilterTodoLists    CalendarFilterType = "todo_lists"
)

// AllFilterTypes lists every category in display order.
var AllFilterTypes = []CalendarFilterType{
	FilterAppointments,
	FilterCountdowns,
	FilterBirthdays,
	FilterMedications,
	FilterTodoLists,
}

// Valid reports whether t is a known category.
func (t CalendarFilterType) Valid() bool {
	for _, known := range AllFilterTypes {
		if t == known {
			return true
		}
	}
	return false
}

// CalendarEvent is the closed set of things the calendar can show. The
// implementations are AppointmentEvent, CountdownEvent, BirthdayEvent,
// MedicationEvent and TodoListEvent.
type CalendarEvent interface {
	// Key uniquely identifies the event within one calendar load.
	Key() string
	FilterType() CalendarFilterType
	// Date is the instant used for day bucketing and ordering.
	Date() time.Time
	// AttributedProfileID is the profile the event belongs to, if any.
	AttributedProfileID() *string
	Title() string

	calendarEvent()
}

// ShareRefOf returns the share key for shareable events.
func ShareRefOf(ev CalendarEvent) (ShareRef, bool) {
	switch e := ev.(type) {
	case AppointmentEvent:
		return ShareRef{EventID: e.Appointment.ID, EventType: ShareEventAppointment}, true
	case CountdownEvent:
		return ShareRef{EventID: e.Countdown.ID, EventType: ShareEventCountdown}, true
	case BirthdayEvent, MedicationEvent, TodoListEvent:
		return ShareRef{}, false
	default:
		return ShareRef{}, false
	}
}

// IsSharedToFamily reports whether ev is an appointment or countdown with a share record.
func IsSharedToFamily(ev CalendarEvent) bool {
	switch e := ev.(type) {
	case AppointmentEvent:
		return e.IsShared
	case CountdownEvent:
		return e.IsShared
	default:
		return false
	}
}

// AppointmentEvent places an appointment on the calendar.
type AppointmentEvent struct {
	Appointment Appointment `json:"appointment"`
	At          time.Time   `json:"at"`
	IsShared    bool        `json:"is_shared"`
}

func (AppointmentEvent) calendarEvent() {}

func (e AppointmentEvent) Key() string { return "appointment-" + e.Appointment.ID }

func (AppointmentEvent) FilterType() CalendarFilterType { return FilterAppointments }

func (e AppointmentEvent) Date() time.Time { return e.At }

func (e AppointmentEvent) AttributedProfileID() *string { return e.Appointment.ProfileID }

func (e AppointmentEvent) Title() string { return e.Appointment.Title }

// CountdownEvent places a countdown, or one day of a legacy multi-day
// countdown, on the calendar.
type CountdownEvent struct {
	Countdown   Countdown  `json:"countdown"`
	Start       time.Time  `json:"start"`
	IsShared    bool       `json:"is_shared"`
	DisplayDate *time.Time `json:"display_date,omitempty"`
}

func (CountdownEvent) calendarEvent() {}

func (e CountdownEvent) Key() string {
	if e.DisplayDate != nil {
		return fmt.Sprintf("countdown-%s-%s", e.Countdown.ID, e.DisplayDate.Format("20060102"))
	}
	return "countdown-" + e.Countdown.ID
}

func (CountdownEvent) FilterType() CalendarFilterType { return FilterCountdowns }

func (e CountdownEvent) Date() time.Time {
	if e.DisplayDate != nil {
		return *e.DisplayDate
	}
	return e.Start
}

func (CountdownEvent) AttributedProfileID() *string { return nil }

func (e CountdownEvent) Title() string { return e.Countdown.Title }

// BirthdayEvent is the next birthday of a profile. It is derived on every
// load and never persisted.
type BirthdayEvent struct {
	Profile        Profile   `json:"profile"`
	NextOccurrence time.Time `json:"next_occurrence"`
	DaysUntil      int       `json:"days_until"`
}

func (BirthdayEvent) calendarEvent() {}

func (e BirthdayEvent) Key() string { return "birthday-" + e.Profile.ID }

func (BirthdayEvent) FilterType() CalendarFilterType { return FilterBirthdays }

func (e BirthdayEvent) Date() time.Time { return e.NextOccurrence }

func (e BirthdayEvent) AttributedProfileID() *string {
	id := e.Profile.ID
	return &id
}

func (e BirthdayEvent) Title() string { return e.Profile.DisplayName() + "'s birthday" }

// MedicationEvent is one scheduled dose occurrence.
type MedicationEvent struct {
	Medication      Medication `json:"medication"`
	ScheduleID      string     `json:"schedule_id"`
	ScheduleEntryID string     `json:"schedule_entry_id"`
	Dosage          string     `json:"dosage"`
	OccurrenceDate  time.Time  `json:"occurrence_date"`
}

func (MedicationEvent) calendarEvent() {}

func (e MedicationEvent) Key() string {
	return fmt.Sprintf("medication-%s-%s-%s", e.Medication.ID, e.ScheduleEntryID, e.OccurrenceDate.Format("200601021504"))
}

func (MedicationEvent) FilterType() CalendarFilterType { return FilterMedications }

func (e MedicationEvent) Date() time.Time { return e.OccurrenceDate }

func (e MedicationEvent) AttributedProfileID() *string {
	id := e.Medication.ProfileID
	return &id
}

func (e MedicationEvent) Title() string { return e.Medication.Name }

// TodoListEvent shows a to-do list on its due date.
type TodoListEvent struct {
	List    TodoList  `json:"list"`
	DueDate time.Time `json:"due_date"`
}

func (TodoListEvent) calendarEvent() {}

func (e TodoListEvent) Key() string { return "todo-" + e.List.ID }

func (TodoListEvent) FilterType() CalendarFilterType { return FilterTodoLists }

func (e TodoListEvent) Date() time.Time { return e.DueDate }

func (TodoListEvent) AttributedProfileID() *string { return nil }

func (e TodoListEvent) Title() string { return e.List.Title }

// StartOfDay returns midnight of t's calendar day in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay compares the wall-clock calendar day of two instants.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// CivilDate re-anchors a date-only value at midnight in loc, keeping its
// wall-clock year, month and day.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
