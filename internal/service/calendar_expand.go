package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// DefaultMedicationHorizonDays is how far ahead medication doses are generated.
const DefaultMedicationHorizonDays = 30

// rruleWeekdays maps a day-of-week index (0 = Sunday) to its recurrence weekday.
var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// mergeAppointments combines own and shared-with-me appointments. An ID
// present in both keeps the own copy.
func mergeAppointments(own, shared []models.Appointment) []models.Appointment {
	seen := make(map[string]struct{}, len(own))
	out := make([]models.Appointment, 0, len(own)+len(shared))
	for _, a := range own {
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	for _, a := range shared {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// mergeCountdowns is mergeAppointments for countdowns.
func mergeCountdowns(own, shared []models.Countdown) []models.Countdown {
	seen := make(map[string]struct{}, len(own))
	out := make([]models.Countdown, 0, len(own)+len(shared))
	for _, c := range own {
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	for _, c := range shared {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// appointmentEvents places appointments on their date, at their time of day when set.
// Both date and time are wall-clock values and are read without zone conversion.
func appointmentEvents(items []models.Appointment, shared models.SharedEventIDs, loc *time.Location) []models.AppointmentEvent {
	events := make([]models.AppointmentEvent, 0, len(items))
	for _, a := range items {
		at := models.CivilDate(a.Date, loc)
		if a.Time != nil {
			at = time.Date(at.Year(), at.Month(), at.Day(), a.Time.Hour(), a.Time.Minute(), 0, 0, loc)
		}
		events = append(events, models.AppointmentEvent{
			Appointment: a,
			At:          at,
			IsShared:    shared.Contains(models.ShareRef{EventID: a.ID, EventType: models.ShareEventAppointment}),
		})
	}
	return events
}

// countdownEvents turns countdowns into events. Legacy multi-day countdowns
// (an end date without a group) become one event per day of [Date, EndDate].
func countdownEvents(items []models.Countdown, shared models.SharedEventIDs, loc *time.Location) []models.CountdownEvent {
	events := make([]models.CountdownEvent, 0, len(items))
	for _, c := range items {
		isShared := shared.Contains(models.ShareRef{EventID: c.ID, EventType: models.ShareEventCountdown})
		events = append(events, expandCountdown(c, isShared, loc)...)
	}
	return events
}

func expandCountdown(c models.Countdown, isShared bool, loc *time.Location) []models.CountdownEvent {
	start := models.CivilDate(c.Date, loc)
	single := []models.CountdownEvent{{Countdown: c, Start: start, IsShared: isShared}}
	if !c.IsLegacyMultiDay() {
		return single
	}
	end := models.CivilDate(*c.EndDate, loc)
	if end.Before(start) {
		return single
	}

	var days []models.CountdownEvent
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		display := day
		days = append(days, models.CountdownEvent{
			Countdown:   c,
			Start:       start,
			IsShared:    isShared,
			DisplayDate: &display,
		})
	}
	return days
}

// birthdayEvents derives the next birthday of every profile that has one.
func birthdayEvents(profiles []models.Profile, today time.Time) []models.BirthdayEvent {
	events := make([]models.BirthdayEvent, 0, len(profiles))
	for _, p := range profiles {
		if p.Birthday == nil {
			continue
		}
		next, days := nextBirthday(*p.Birthday, today)
		events = append(events, models.BirthdayEvent{Profile: p, NextOccurrence: next, DaysUntil: days})
	}
	return events
}

// nextBirthday compares month and day only. A birthday already past this
// year rolls over to next year. Feb 29 falls on Mar 1 in common years.
func nextBirthday(birthday, today time.Time) (time.Time, int) {
	loc := today.Location()
	today = models.StartOfDay(today)
	next := time.Date(today.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, loc)
	if next.Before(today) {
		next = time.Date(today.Year()+1, birthday.Month(), birthday.Day(), 0, 0, 0, 0, loc)
	}
	return next, civilDaysBetween(today, next)
}

// civilDaysBetween counts calendar days from a to b, ignoring DST shifts.
func civilDaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// medicationEvents expands the scheduled entries of one medication over
// [today, today+horizonDays). Paused medications and as-needed schedules
// produce nothing.
func medicationEvents(med models.Medication, schedules []models.MedicationSchedule, today time.Time, horizonDays int) ([]models.MedicationEvent, error) {
	if med.IsPaused {
		return nil, nil
	}
	if horizonDays <= 0 {
		horizonDays = DefaultMedicationHorizonDays
	}
	loc := today.Location()
	windowStart := models.StartOfDay(today)
	windowEnd := windowStart.AddDate(0, 0, horizonDays).Add(-time.Second)

	var events []models.MedicationEvent
	for _, schedule := range schedules {
		if schedule.ScheduleType != models.ScheduleTypeScheduled {
			continue
		}
		from := models.CivilDate(schedule.StartDate, loc)
		if from.Before(windowStart) {
			from = windowStart
		}
		until := windowEnd
		if schedule.EndDate != nil {
			end := models.CivilDate(*schedule.EndDate, loc).AddDate(0, 0, 1).Add(-time.Second)
			if end.Before(until) {
				until = end
			}
		}
		if from.After(until) {
			continue
		}

		for _, entry := range schedule.Entries {
			occurrences, err := entryOccurrences(entry, from, until)
			if err != nil {
				return nil, fmt.Errorf("medication %s schedule %s: %w", med.ID, schedule.ID, err)
			}
			for _, at := range occurrences {
				events = append(events, models.MedicationEvent{
					Medication:      med,
					ScheduleID:      schedule.ID,
					ScheduleEntryID: entry.ID,
					Dosage:          entry.Dosage,
					OccurrenceDate:  at,
				})
			}
		}
	}
	return events, nil
}

// entryOccurrences evaluates one weekly entry between from and until inclusive.
func entryOccurrences(entry models.ScheduleEntry, from, until time.Time) ([]time.Time, error) {
	var weekdays []rrule.Weekday
	seen := map[int]bool{}
	for _, d := range entry.DaysOfWeek {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		weekdays = append(weekdays, rruleWeekdays[d])
	}
	if len(weekdays) == 0 {
		return nil, nil
	}

	hour, minute, err := entry.Clock()
	if err != nil {
		return nil, err
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location()),
		Until:     until,
		Byweekday: weekdays,
	})
	if err != nil {
		return nil, fmt.Errorf("build recurrence for entry %s: %w", entry.ID, err)
	}
	return rule.All(), nil
}

// todoListEvents shows lists on their due date.
func todoListEvents(lists []models.TodoList, loc *time.Location) []models.TodoListEvent {
	events := make([]models.TodoListEvent, 0, len(lists))
	for _, l := range lists {
		if l.DueDate == nil {
			continue
		}
		events = append(events, models.TodoListEvent{List: l, DueDate: models.CivilDate(*l.DueDate, loc)})
	}
	return events
}

// customCountdownNames returns the distinct custom names in use, sorted.
func customCountdownNames(events []models.CountdownEvent) []string {
	set := map[string]struct{}{}
	for _, ev := range events {
		if name, ok := ev.Countdown.CustomName(); ok {
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// reconcileRoster appends a viewer placeholder for every profile-connected
// user that has no membership row.
func reconcileRoster(accountID string, members []models.AccountMember, profiles []models.Profile) []models.AccountMember {
	roster := make([]models.AccountMember, 0, len(members)+len(profiles))
	known := make(map[string]struct{}, len(members))
	for _, m := range members {
		known[m.UserID] = struct{}{}
		roster = append(roster, m)
	}
	for _, p := range profiles {
		userID := p.ConnectedUserID()
		if userID == nil {
			continue
		}
		if _, ok := known[*userID]; ok {
			continue
		}
		known[*userID] = struct{}{}
		roster = append(roster, models.AccountMember{
			ID:          "profile-" + p.ID,
			AccountID:   accountID,
			UserID:      *userID,
			Role:        models.MemberRoleViewer,
			DisplayName: p.DisplayName(),
			Source:      models.MemberSourceProfileSync,
			CreatedAt:   p.CreatedAt,
		})
	}
	return roster
}
