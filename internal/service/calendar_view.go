package service

import (
	"sort"
	"time"

	"github.com/noah-isme/unforgotten-api/internal/models"
	"github.com/noah-isme/unforgotten-api/pkg/config"
)

// StreamMode selects which event stream a view renders.
type StreamMode string

const (
	StreamAll    StreamMode = "all"
	StreamFamily StreamMode = "family"
)

// ParseStreamMode defaults unknown values to StreamAll.
func ParseStreamMode(raw string) StreamMode {
	if StreamMode(raw) == StreamFamily {
		return StreamFamily
	}
	return StreamAll
}

// CalendarFilter composes a type filter and a member filter.
type CalendarFilter struct {
	// Types enables categories. Nil enables all; an empty slice enables none.
	Types []models.CalendarFilterType
	// CountdownTypes enables standard countdown types. Nil enables all.
	CountdownTypes []models.CountdownType
	// CustomCountdownNames enables custom-named countdowns. Nil enables all.
	CustomCountdownNames []string
	// Members restricts attributable events to these user IDs. Empty means no restriction.
	Members []string
}

// DefaultFilter enables every category, countdown type and discovered custom name.
func DefaultFilter(snapshot *CalendarSnapshot) CalendarFilter {
	filter := CalendarFilter{
		Types:          append([]models.CalendarFilterType(nil), models.AllFilterTypes...),
		CountdownTypes: append([]models.CountdownType(nil), models.StandardCountdownTypes...),
	}
	if snapshot != nil {
		filter.CustomCountdownNames = append([]string{}, snapshot.CustomCountdownNames...)
	}
	return filter
}

// MemberFilterActive reports whether a member selection is in effect.
func (f CalendarFilter) MemberFilterActive() bool {
	return len(f.Members) > 0
}

// EventGroup is a run of events on the same calendar day.
type EventGroup struct {
	Date   time.Time              `json:"date"`
	Events []models.CalendarEvent `json:"events"`
}

// CalendarView derives filtered streams and date indexes from one snapshot.
// It never mutates the snapshot.
type CalendarView struct {
	snapshot *CalendarSnapshot
	filter   CalendarFilter
	palette  config.Palette

	types          map[models.CalendarFilterType]bool
	countdownTypes map[models.CountdownType]bool
	customNames    map[string]bool
	members        map[string]bool
	profiles       map[string]models.Profile
	shares         map[models.ShareRef]models.FamilyCalendarShare
	shareMembers   map[string]map[string]bool
}

// NewCalendarView prepares lookups for snapshot under filter.
func NewCalendarView(snapshot *CalendarSnapshot, filter CalendarFilter, palette config.Palette) *CalendarView {
	if snapshot == nil {
		snapshot = &CalendarSnapshot{}
	}
	v := &CalendarView{
		snapshot:     snapshot,
		filter:       filter,
		palette:      palette,
		members:      toSet(filter.Members),
		profiles:     make(map[string]models.Profile, len(snapshot.Profiles)),
		shares:       make(map[models.ShareRef]models.FamilyCalendarShare, len(snapshot.Shares)),
		shareMembers: make(map[string]map[string]bool, len(snapshot.ShareMembers)),
	}
	if filter.Types != nil {
		v.types = make(map[models.CalendarFilterType]bool, len(filter.Types))
		for _, t := range filter.Types {
			v.types[t] = true
		}
	}
	if filter.CountdownTypes != nil {
		v.countdownTypes = make(map[models.CountdownType]bool, len(filter.CountdownTypes))
		for _, t := range filter.CountdownTypes {
			v.countdownTypes[t] = true
		}
	}
	if filter.CustomCountdownNames != nil {
		v.customNames = toSet(filter.CustomCountdownNames)
	}
	for _, p := range snapshot.Profiles {
		v.profiles[p.ID] = p
	}
	for _, share := range snapshot.Shares {
		v.shares[models.ShareRef{EventID: share.EventID, EventType: share.EventType}] = share
	}
	for shareID, ids := range snapshot.ShareMembers {
		v.shareMembers[shareID] = toSet(ids)
	}
	return v
}

// Snapshot returns the underlying snapshot.
func (v *CalendarView) Snapshot() *CalendarSnapshot {
	return v.snapshot
}

// Filter returns the filter the view was built with.
func (v *CalendarView) Filter() CalendarFilter {
	return v.filter
}

// Filtered is the main stream: type filter AND member filter, sorted by date.
func (v *CalendarView) Filtered() []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, ev := range v.snapshot.Events() {
		if v.passesType(ev) && v.passesMember(ev) {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out
}

// Family is the stream of shared appointments and countdowns. With a member
// filter active an event stays only when a selected member shared it or is
// one of its share members.
func (v *CalendarView) Family() []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, ev := range v.snapshot.Events() {
		if !v.passesType(ev) || !models.IsSharedToFamily(ev) {
			continue
		}
		if v.filter.MemberFilterActive() && !v.sharedWithSelection(ev) {
			continue
		}
		out = append(out, ev)
	}
	sortEvents(out)
	return out
}

// Active returns the stream for mode.
func (v *CalendarView) Active(mode StreamMode) []models.CalendarEvent {
	if mode == StreamFamily {
		return v.Family()
	}
	return v.Filtered()
}

// EventsOn returns the active events on day's calendar date.
func (v *CalendarView) EventsOn(mode StreamMode, day time.Time) []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, ev := range v.Active(mode) {
		if models.SameDay(ev.Date(), day) {
			out = append(out, ev)
		}
	}
	return out
}

// EventsInMonth returns the active events in month's year and month.
func (v *CalendarView) EventsInMonth(mode StreamMode, month time.Time) []models.CalendarEvent {
	var out []models.CalendarEvent
	for _, ev := range v.Active(mode) {
		d := ev.Date()
		if d.Year() == month.Year() && d.Month() == month.Month() {
			out = append(out, ev)
		}
	}
	return out
}

// DotColors maps each day (YYYY-MM-DD) to the distinct category colors of
// its active events, in category order.
func (v *CalendarView) DotColors(mode StreamMode) map[string][]string {
	present := map[string]map[models.CalendarFilterType]bool{}
	for _, ev := range v.Active(mode) {
		day := ev.Date().Format("2006-01-02")
		if present[day] == nil {
			present[day] = map[models.CalendarFilterType]bool{}
		}
		present[day][ev.FilterType()] = true
	}

	dots := make(map[string][]string, len(present))
	for day, types := range present {
		seen := map[string]bool{}
		for _, t := range models.AllFilterTypes {
			if !types[t] {
				continue
			}
			color := v.palette.Color(string(t))
			if seen[color] {
				continue
			}
			seen[color] = true
			dots[day] = append(dots[day], color)
		}
	}
	return dots
}

// Groups splits the active stream into runs of same-day events in one pass.
func (v *CalendarView) Groups(mode StreamMode) []EventGroup {
	return GroupByDay(v.Active(mode))
}

// GroupByDay closes a group whenever the day changes. Events must already be sorted.
func GroupByDay(events []models.CalendarEvent) []EventGroup {
	var groups []EventGroup
	for _, ev := range events {
		if n := len(groups); n > 0 && models.SameDay(groups[n-1].Date, ev.Date()) {
			groups[n-1].Events = append(groups[n-1].Events, ev)
			continue
		}
		groups = append(groups, EventGroup{Date: models.StartOfDay(ev.Date()), Events: []models.CalendarEvent{ev}})
	}
	return groups
}

// ProfileFor resolves an event's attributed profile, if loaded.
func (v *CalendarView) ProfileFor(ev models.CalendarEvent) (models.Profile, bool) {
	id := ev.AttributedProfileID()
	if id == nil {
		return models.Profile{}, false
	}
	p, ok := v.profiles[*id]
	return p, ok
}

// ShareFor returns the share record of a shared appointment or countdown.
func (v *CalendarView) ShareFor(ev models.CalendarEvent) (models.FamilyCalendarShare, bool) {
	ref, ok := models.ShareRefOf(ev)
	if !ok {
		return models.FamilyCalendarShare{}, false
	}
	share, ok := v.shares[ref]
	return share, ok
}

func (v *CalendarView) passesType(ev models.CalendarEvent) bool {
	if v.types != nil && !v.types[ev.FilterType()] {
		return false
	}
	switch e := ev.(type) {
	case models.CountdownEvent:
		if name, custom := e.Countdown.CustomName(); custom {
			return v.customNames == nil || v.customNames[name]
		}
		return v.countdownTypes == nil || v.countdownTypes[e.Countdown.Type]
	case models.AppointmentEvent, models.BirthdayEvent, models.MedicationEvent, models.TodoListEvent:
		return true
	default:
		return false
	}
}

// passesMember keeps unattributed events. Attributed events need a profile
// whose connected user is selected.
func (v *CalendarView) passesMember(ev models.CalendarEvent) bool {
	if !v.filter.MemberFilterActive() {
		return true
	}
	if ev.AttributedProfileID() == nil {
		return true
	}
	profile, ok := v.ProfileFor(ev)
	if !ok {
		return false
	}
	userID := profile.ConnectedUserID()
	return userID != nil && v.members[*userID]
}

func (v *CalendarView) sharedWithSelection(ev models.CalendarEvent) bool {
	share, ok := v.ShareFor(ev)
	if !ok {
		return false
	}
	if v.members[share.SharedByUserID] {
		return true
	}
	for member := range v.shareMembers[share.ID] {
		if v.members[member] {
			return true
		}
	}
	return false
}

// sortEvents orders by date, then key for a stable result.
func sortEvents(events []models.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		di, dj := events[i].Date(), events[j].Date()
		if di.Equal(dj) {
			return events[i].Key() < events[j].Key()
		}
		return di.Before(dj)
	})
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
