package service

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/unforgotten-api/internal/models"
	"github.com/noah-isme/unforgotten-api/pkg/config"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
	"github.com/noah-isme/unforgotten-api/pkg/export"
	"github.com/noah-isme/unforgotten-api/pkg/ical"
	"github.com/noah-isme/unforgotten-api/pkg/storage"
)

// Agenda columns.
const (
	agendaDate     = "Date"
	agendaTime     = "Time"
	agendaCategory = "Category"
	agendaTitle    = "Title"
	agendaDetails  = "Details"
	agendaShared   = "Shared"
)

var agendaHeaders = []string{agendaDate, agendaTime, agendaCategory, agendaTitle, agendaDetails, agendaShared}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	PublicBaseURL string
	APIPrefix     string
	FeedName      string
}

// ExportResult is a rendered download.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// FeedLink is a subscribable calendar URL.
type FeedLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders calendar views as agendas and subscription feeds.
type ExportService struct {
	signer  *storage.FeedTokenSigner
	palette config.Palette
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(signer *storage.FeedTokenSigner, palette config.Palette, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FeedName == "" {
		cfg.FeedName = "Family calendar"
	}
	return &ExportService{signer: signer, palette: palette, logger: logger, cfg: cfg}
}

// Agenda renders the month's active events in the requested format.
func (s *ExportService) Agenda(view *CalendarView, mode StreamMode, month time.Time, format export.Format) (*ExportResult, error) {
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedExport.Code, appErrors.ErrUnsupportedExport.Status, appErrors.ErrUnsupportedExport.Message)
	}

	doc := export.Document{
		Title:    "Calendar " + month.Format("January 2006"),
		Subtitle: string(mode) + " events",
		Data:     AgendaDataset(view, view.EventsInMonth(mode, month)),
	}
	body, err := renderer.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render agenda")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("calendar-%s.%s", month.Format("2006-01"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// AgendaDataset lays events out one per row.
func AgendaDataset(view *CalendarView, events []models.CalendarEvent) export.Dataset {
	rows := make([]map[string]string, 0, len(events))
	for _, ev := range events {
		d := describeEvent(view, ev)
		clock := ""
		if !d.allDay {
			clock = ev.Date().Format("15:04")
		}
		shared := ""
		if models.IsSharedToFamily(ev) {
			shared = "yes"
		}
		rows = append(rows, map[string]string{
			agendaDate:     ev.Date().Format("2006-01-02"),
			agendaTime:     clock,
			agendaCategory: string(ev.FilterType()),
			agendaTitle:    ev.Title(),
			agendaDetails:  d.details,
			agendaShared:   shared,
		})
	}
	return export.Dataset{Headers: agendaHeaders, Rows: rows}
}

// FeedLink signs a feed token for the user and builds its public URL.
func (s *ExportService) FeedLink(accountID, userID string) (*FeedLink, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "calendar feeds are not configured")
	}
	token, expiresAt, err := s.signer.Generate(accountID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign feed token")
	}
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/") + strings.TrimRight(s.cfg.APIPrefix, "/")
	link := fmt.Sprintf("%s/feeds/family.ics?token=%s", base, url.QueryEscape(token))
	return &FeedLink{URL: link, Token: token, ExpiresAt: expiresAt}, nil
}

// ResolveFeedToken validates a feed token.
func (s *ExportService) ResolveFeedToken(token string) (storage.FeedClaims, error) {
	if s.signer == nil {
		return storage.FeedClaims{}, appErrors.Clone(appErrors.ErrServiceUnavailable, "calendar feeds are not configured")
	}
	claims, err := s.signer.Parse(token)
	if err != nil {
		return storage.FeedClaims{}, appErrors.Wrap(err, appErrors.ErrInvalidFeedToken.Code, appErrors.ErrInvalidFeedToken.Status, appErrors.ErrInvalidFeedToken.Message)
	}
	return claims, nil
}

// FamilyFeed turns the view's family stream into an iCalendar feed.
func (s *ExportService) FamilyFeed(view *CalendarView, loc *time.Location) ical.Feed {
	snap := view.Snapshot()
	feed := ical.Feed{
		Name:        s.cfg.FeedName,
		Description: "Events shared with the family",
		Stamp:       snap.LoadedAt,
	}
	if loc != nil {
		feed.Timezone = loc.String()
	}
	for _, ev := range view.Family() {
		d := describeEvent(view, ev)
		start := ev.Date()
		feed.Events = append(feed.Events, ical.Event{
			UID:         ev.Key() + "@unforgotten",
			Summary:     ev.Title(),
			Description: d.details,
			Location:    d.location,
			Categories:  []string{string(ev.FilterType())},
			Color:       s.palette.Color(string(ev.FilterType())),
			Start:       start,
			End:         start.Add(time.Hour),
			AllDay:      d.allDay,
			Modified:    d.modified,
		})
	}
	return feed
}

type eventDescription struct {
	details  string
	location string
	allDay   bool
	modified time.Time
}

func describeEvent(view *CalendarView, ev models.CalendarEvent) eventDescription {
	switch e := ev.(type) {
	case models.AppointmentEvent:
		d := eventDescription{
			details:  e.Appointment.Type,
			allDay:   e.Appointment.Time == nil,
			modified: e.Appointment.UpdatedAt,
		}
		if e.Appointment.Location != nil {
			d.location = *e.Appointment.Location
		}
		if p, ok := view.ProfileFor(ev); ok {
			d.details = strings.TrimSpace(d.details + " for " + p.DisplayName())
		}
		return d
	case models.CountdownEvent:
		details := string(e.Countdown.Type)
		if name, ok := e.Countdown.CustomName(); ok {
			details = name
		}
		if e.Countdown.Notes != nil && *e.Countdown.Notes != "" {
			details += ": " + *e.Countdown.Notes
		}
		return eventDescription{details: details, allDay: true, modified: e.Countdown.UpdatedAt}
	case models.BirthdayEvent:
		return eventDescription{details: fmt.Sprintf("in %d days", e.DaysUntil), allDay: true}
	case models.MedicationEvent:
		details := e.Dosage
		if p, ok := view.ProfileFor(ev); ok {
			details = strings.TrimSpace(details + " for " + p.DisplayName())
		}
		return eventDescription{details: details}
	case models.TodoListEvent:
		details := ""
		if e.List.ListType != nil {
			details = *e.List.ListType
		}
		return eventDescription{details: details, allDay: true}
	default:
		return eventDescription{allDay: true}
	}
}
