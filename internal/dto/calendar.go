package dto

import (
	"time"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// CalendarEvent is the API projection of one calendar event.
type CalendarEvent struct {
	Key       string                    `json:"key"`
	Type      models.CalendarFilterType `json:"type"`
	Title     string                    `json:"title"`
	Date      time.Time                 `json:"date"`
	Day       string                    `json:"day"`
	Color     string                    `json:"color"`
	ProfileID *string                   `json:"profileId,omitempty"`
	IsShared  bool                      `json:"isShared"`
	ShareID   string                    `json:"shareId,omitempty"`
	Payload   models.CalendarEvent      `json:"payload"`
}

// CalendarEventGroup is a run of same-day events.
type CalendarEventGroup struct {
	Day    string          `json:"day"`
	Events []CalendarEvent `json:"events"`
}

// CalendarEventsResponse is returned by the stream endpoint.
type CalendarEventsResponse struct {
	View   string               `json:"view"`
	Events []CalendarEvent      `json:"events"`
	Groups []CalendarEventGroup `json:"groups"`
}

// CalendarDayResponse lists the events of one day.
type CalendarDayResponse struct {
	View   string          `json:"view"`
	Day    string          `json:"day"`
	Events []CalendarEvent `json:"events"`
}

// NavigatorState mirrors the month navigator.
type NavigatorState struct {
	CurrentMonth string  `json:"currentMonth"`
	SelectedDate *string `json:"selectedDate,omitempty"`
	Today        string  `json:"today"`
}

// CalendarMonthResponse is the month grid payload.
type CalendarMonthResponse struct {
	View      string               `json:"view"`
	Navigator NavigatorState       `json:"navigator"`
	Events    []CalendarEvent      `json:"events"`
	Groups    []CalendarEventGroup `json:"groups"`
	Dots      map[string][]string  `json:"dots"`
	Selected  []CalendarEvent      `json:"selected,omitempty"`
}

// FilterOption is one selectable filter value.
type FilterOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// RosterEntry is one selectable member.
type RosterEntry struct {
	UserID      string              `json:"userId"`
	DisplayName string              `json:"displayName"`
	Role        models.MemberRole   `json:"role"`
	Source      models.MemberSource `json:"source"`
}

// CalendarFiltersResponse lists the available filter values.
type CalendarFiltersResponse struct {
	Types                []FilterOption `json:"types"`
	CountdownTypes       []FilterOption `json:"countdownTypes"`
	CustomCountdownNames []string       `json:"customCountdownNames"`
	Members              []RosterEntry  `json:"members"`
}

// ShareResponse is returned after sharing an event.
type ShareResponse struct {
	Share         *models.FamilyCalendarShare `json:"share"`
	MemberUserIDs []string                    `json:"memberUserIds"`
}
