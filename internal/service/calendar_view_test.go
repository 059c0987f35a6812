package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unforgotten-api/internal/models"
	"github.com/noah-isme/unforgotten-api/pkg/config"
)

// viewFixture has two connected profiles (u1, u2), one profile without a
// user, and one event of every category.
func viewFixture() *CalendarSnapshot {
	profiles := []models.Profile{
		{ID: "p1", FullName: "Ann", LinkedUserID: strPtr("u1"), Birthday: timePtr(day(1960, time.June, 3))},
		{ID: "p2", FullName: "Bob", SourceUserID: strPtr("u2")},
		{ID: "p3", FullName: "Cat"},
	}
	shared := models.NewSharedEventIDs()
	shared.Appointments["a1"] = struct{}{}
	shared.Countdowns["c1"] = struct{}{}

	snap := &CalendarSnapshot{
		AccountID: "acct",
		Profiles:  profiles,
		Shares: []models.FamilyCalendarShare{
			{ID: "sh1", EventID: "a1", EventType: models.ShareEventAppointment, SharedByUserID: "u1"},
			{ID: "sh2", EventID: "c1", EventType: models.ShareEventCountdown, SharedByUserID: "u3"},
		},
		ShareMembers: map[string][]string{"sh1": {}, "sh2": {"u2"}},
	}
	snap.Appointments = appointmentEvents([]models.Appointment{
		{ID: "a1", ProfileID: strPtr("p1"), Title: "Dentist", Date: day(2025, time.June, 2)},
		{ID: "a2", ProfileID: strPtr("p2"), Title: "Physio", Date: day(2025, time.June, 2)},
		{ID: "a3", ProfileID: strPtr("p3"), Title: "Vet", Date: day(2025, time.June, 4)},
		{ID: "a4", Title: "Plumber", Date: day(2025, time.June, 5)},
		{ID: "a5", ProfileID: strPtr("gone"), Title: "Orphan", Date: day(2025, time.June, 5)},
	}, shared, time.UTC)
	snap.Countdowns = countdownEvents([]models.Countdown{
		{ID: "c1", Title: "Holiday", Type: models.CountdownTypeHoliday, Date: day(2025, time.June, 2)},
		{ID: "c2", Title: "Recital", Type: models.CountdownTypeCustom, CustomType: strPtr("Recital"), Date: day(2025, time.July, 1)},
	}, shared, time.UTC)
	snap.Birthdays = birthdayEvents(profiles, day(2025, time.June, 1))
	snap.Medications = []models.MedicationEvent{{
		Medication:      models.Medication{ID: "m1", ProfileID: "p2", Name: "Statin"},
		ScheduleEntryID: "e1",
		OccurrenceDate:  time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC),
	}}
	snap.TodoLists = todoListEvents([]models.TodoList{{ID: "t1", Title: "Packing", DueDate: timePtr(day(2025, time.June, 4))}}, time.UTC)
	snap.CustomCountdownNames = customCountdownNames(snap.Countdowns)
	return snap
}

func keys(events []models.CalendarEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Key())
	}
	return out
}

func TestFilteredUnfilteredShowsEverythingSorted(t *testing.T) {
	snap := viewFixture()
	view := NewCalendarView(snap, CalendarFilter{}, config.DefaultPalette())

	events := view.Filtered()
	assert.Len(t, events, len(snap.Events()))
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Date().Before(events[i-1].Date()))
	}
	assert.Equal(t, keys(events), keys(NewCalendarView(snap, DefaultFilter(snap), config.DefaultPalette()).Filtered()))
}

func TestFilteredMemberSelection(t *testing.T) {
	snap := viewFixture()
	view := NewCalendarView(snap, CalendarFilter{Members: []string{"u1"}}, config.DefaultPalette())

	assert.ElementsMatch(t, []string{
		"appointment-a1",
		"appointment-a4",
		"countdown-c1",
		"countdown-c2",
		"birthday-p1",
		"todo-t1",
	}, keys(view.Filtered()))

	for _, ev := range view.Filtered() {
		if p, ok := view.ProfileFor(ev); ok {
			require.NotNil(t, p.ConnectedUserID())
			assert.Equal(t, "u1", *p.ConnectedUserID())
		}
	}
}

func TestFilteredTypeAndCountdownSubFilters(t *testing.T) {
	snap := viewFixture()
	view := NewCalendarView(snap, CalendarFilter{
		Types:                []models.CalendarFilterType{models.FilterCountdowns},
		CountdownTypes:       []models.CountdownType{},
		CustomCountdownNames: []string{"Recital"},
	}, config.DefaultPalette())
	assert.Equal(t, []string{"countdown-c2"}, keys(view.Filtered()))

	view = NewCalendarView(snap, CalendarFilter{
		Types:                []models.CalendarFilterType{models.FilterCountdowns},
		CountdownTypes:       []models.CountdownType{models.CountdownTypeHoliday},
		CustomCountdownNames: []string{},
	}, config.DefaultPalette())
	assert.Equal(t, []string{"countdown-c1"}, keys(view.Filtered()))
}

func TestFamilyOnlySharedAppointmentsAndCountdowns(t *testing.T) {
	snap := viewFixture()
	view := NewCalendarView(snap, CalendarFilter{}, config.DefaultPalette())

	family := view.Family()
	assert.Equal(t, []string{"appointment-a1", "countdown-c1"}, keys(family))
	for _, ev := range family {
		switch ev.(type) {
		case models.BirthdayEvent, models.MedicationEvent, models.TodoListEvent:
			t.Fatalf("family stream leaked %s", ev.Key())
		}
	}
	assert.Equal(t, keys(family), keys(view.Active(StreamFamily)))
}

func TestFamilyMemberFilterUsesSharerAndShareMembers(t *testing.T) {
	snap := viewFixture()

	bySharer := NewCalendarView(snap, CalendarFilter{Members: []string{"u1"}}, config.DefaultPalette())
	assert.Equal(t, []string{"appointment-a1"}, keys(bySharer.Family()))

	byMember := NewCalendarView(snap, CalendarFilter{Members: []string{"u2"}}, config.DefaultPalette())
	assert.Equal(t, []string{"countdown-c1"}, keys(byMember.Family()))

	nobody := NewCalendarView(snap, CalendarFilter{Members: []string{"u9"}}, config.DefaultPalette())
	assert.Empty(t, nobody.Family())
}

func TestEventsOnAndInMonth(t *testing.T) {
	snap := viewFixture()
	view := NewCalendarView(snap, CalendarFilter{}, config.DefaultPalette())

	assert.Equal(t, []string{
		"appointment-a1",
		"appointment-a2",
		"countdown-c1",
		"medication-m1-e1-202506020800",
	}, keys(view.EventsOn(StreamAll, day(2025, time.June, 2))))

	july := view.EventsInMonth(StreamAll, day(2025, time.July, 15))
	assert.Equal(t, []string{"countdown-c2"}, keys(july))

	assert.Len(t, view.EventsInMonth(StreamFamily, day(2025, time.June, 1)), 2)
}

func TestDotColorsDistinctInCategoryOrder(t *testing.T) {
	palette := config.DefaultPalette()
	view := NewCalendarView(viewFixture(), CalendarFilter{}, palette)

	dots := view.DotColors(StreamAll)
	assert.Equal(t, []string{
		palette.Color("appointments"),
		palette.Color("countdowns"),
		palette.Color("medications"),
	}, dots["2025-06-02"])
	assert.Equal(t, []string{palette.Color("birthdays")}, dots["2025-06-03"])
	_, ok := dots["2025-06-10"]
	assert.False(t, ok)
}

func TestGroupsSplitOnDayChange(t *testing.T) {
	view := NewCalendarView(viewFixture(), CalendarFilter{}, config.DefaultPalette())
	groups := view.Groups(StreamAll)

	total := 0
	for i, g := range groups {
		require.NotEmpty(t, g.Events)
		assert.Equal(t, models.StartOfDay(g.Events[0].Date()), g.Date)
		for _, ev := range g.Events {
			assert.True(t, models.SameDay(g.Date, ev.Date()))
		}
		if i > 0 {
			assert.False(t, models.SameDay(groups[i-1].Date, g.Date))
		}
		total += len(g.Events)
	}
	assert.Equal(t, len(view.Filtered()), total)
	assert.Equal(t, day(2025, time.June, 2), groups[0].Date)
}

func TestParseStreamMode(t *testing.T) {
	assert.Equal(t, StreamFamily, ParseStreamMode("family"))
	assert.Equal(t, StreamAll, ParseStreamMode(""))
	assert.Equal(t, StreamAll, ParseStreamMode("bogus"))
}

func TestFilteredEmptyTypesHidesEverything(t *testing.T) {
	snap := viewFixture()
	view := NewCalendarView(snap, CalendarFilter{Types: []models.CalendarFilterType{}}, config.DefaultPalette())

	assert.Empty(t, view.Filtered())
	assert.Empty(t, view.Family())
	assert.Empty(t, view.DotColors(StreamAll))

	only := NewCalendarView(snap, CalendarFilter{Types: []models.CalendarFilterType{models.FilterTodoLists}}, config.DefaultPalette())
	assert.Equal(t, []string{"todo-t1"}, keys(only.Filtered()))
}
