package service

import (
	"time"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// CalendarNavigator tracks the displayed month and the selected day.
type CalendarNavigator struct {
	CurrentMonth time.Time  `json:"current_month"`
	SelectedDate *time.Time `json:"selected_date,omitempty"`

	now func() time.Time
	loc *time.Location
}

// NewCalendarNavigator starts on the current month with no selection.
func NewCalendarNavigator(now func() time.Time, loc *time.Location) *CalendarNavigator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	n := &CalendarNavigator{now: now, loc: loc}
	n.GoToToday()
	return n
}

// FirstOfMonth returns midnight on the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// ShowMonth jumps to the month containing t without touching the selection.
func (n *CalendarNavigator) ShowMonth(t time.Time) {
	n.CurrentMonth = FirstOfMonth(t.In(n.loc))
}

// NextMonth advances one calendar month.
func (n *CalendarNavigator) NextMonth() {
	n.CurrentMonth = n.CurrentMonth.AddDate(0, 1, 0)
}

// PreviousMonth goes back one calendar month.
func (n *CalendarNavigator) PreviousMonth() {
	n.CurrentMonth = n.CurrentMonth.AddDate(0, -1, 0)
}

// Select marks day as the selected date.
func (n *CalendarNavigator) Select(day time.Time) {
	d := models.StartOfDay(day.In(n.loc))
	n.SelectedDate = &d
}

// GoToToday shows the current month and clears the selection.
func (n *CalendarNavigator) GoToToday() {
	n.CurrentMonth = FirstOfMonth(n.now().In(n.loc))
	n.SelectedDate = nil
}

// ClearSelection drops the selected date.
func (n *CalendarNavigator) ClearSelection() {
	n.SelectedDate = nil
}
