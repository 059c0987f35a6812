// Package ical renders calendar subscription feeds.
package ical

import (
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
)

const defaultProductID = "-//Unforgotten//Family Calendar//EN"

// Event is one VEVENT in a feed.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Categories  []string
	Color       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Modified    time.Time
}

// Feed is a named collection of events.
type Feed struct {
	Name        string
	Description string
	ProductID   string
	Timezone    string
	Stamp       time.Time
	Events      []Event
}

// Build converts the feed into a golang-ical calendar.
func Build(feed Feed) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	if feed.ProductID != "" {
		cal.SetProductId(feed.ProductID)
	} else {
		cal.SetProductId(defaultProductID)
	}
	if feed.Name != "" {
		cal.SetName(feed.Name)
		cal.SetXWRCalName(feed.Name)
	}
	if feed.Description != "" {
		cal.SetXWRCalDesc(feed.Description)
	}
	if feed.Timezone != "" {
		cal.SetXWRTimezone(feed.Timezone)
	}
	cal.SetRefreshInterval("PT1H")

	stamp := feed.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	for _, ev := range feed.Events {
		vevent := cal.AddEvent(ev.UID)
		vevent.SetDtStampTime(stamp)
		vevent.SetSummary(ev.Summary)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if ev.Color != "" {
			vevent.SetColor(ev.Color)
		}
		for _, category := range ev.Categories {
			vevent.AddCategory(category)
		}
		if !ev.Modified.IsZero() {
			vevent.SetLastModifiedAt(ev.Modified)
		}

		if ev.AllDay {
			day := time.Date(ev.Start.Year(), ev.Start.Month(), ev.Start.Day(), 0, 0, 0, 0, time.UTC)
			vevent.SetAllDayStartAt(day)
			vevent.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}
		end := ev.End
		if end.IsZero() || !end.After(ev.Start) {
			end = ev.Start.Add(time.Hour)
		}
		vevent.SetStartAt(ev.Start)
		vevent.SetEndAt(end)
	}
	return cal
}

// Render serializes the feed as an iCalendar document.
func Render(feed Feed) string {
	return Build(feed).Serialize()
}

// Write streams the serialized feed to w.
func Write(w io.Writer, feed Feed) error {
	return Build(feed).SerializeTo(w)
}
