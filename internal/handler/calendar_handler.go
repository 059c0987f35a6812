package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unforgotten-api/internal/dto"
	"github.com/noah-isme/unforgotten-api/internal/middleware"
	"github.com/noah-isme/unforgotten-api/internal/models"
	"github.com/noah-isme/unforgotten-api/internal/service"
	"github.com/noah-isme/unforgotten-api/pkg/config"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
	"github.com/noah-isme/unforgotten-api/pkg/export"
	"github.com/noah-isme/unforgotten-api/pkg/response"
)

type calendarLoader interface {
	Load(ctx context.Context, req service.LoadRequest) (*service.CalendarSnapshot, error)
	Location() *time.Location
	Now() time.Time
}

type calendarExporter interface {
	Agenda(view *service.CalendarView, mode service.StreamMode, month time.Time, format export.Format) (*service.ExportResult, error)
	FeedLink(accountID, userID string) (*service.FeedLink, error)
}

type shareManager interface {
	Share(ctx context.Context, accountID, userID string, req models.ShareRequest) (*models.FamilyCalendarShare, []string, error)
	Unshare(ctx context.Context, accountID, shareID string) error
}

var filterLabels = map[models.CalendarFilterType]string{
	models.FilterAppointments: "Appointments",
	models.FilterCountdowns:   "Countdowns",
	models.FilterBirthdays:    "Birthdays",
	models.FilterMedications:  "Medications",
	models.FilterTodoLists:    "To-do lists",
}

// CalendarHandler serves the aggregated family calendar.
type CalendarHandler struct {
	calendar calendarLoader
	exports  calendarExporter
	shares   shareManager
	palette  config.Palette
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(calendar calendarLoader, exports calendarExporter, shares shareManager, palette config.Palette) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, exports: exports, shares: shares, palette: palette}
}

// calendarRequest is a loaded snapshot with the view the query asked for.
type calendarRequest struct {
	mode service.StreamMode
	view *service.CalendarView
}

// Events godoc
// @Summary Calendar event stream
// @Tags Calendar
// @Produce json
// @Param accountId path string true "Account ID"
// @Param view query string false "all or family"
// @Param types query string false "Comma separated categories"
// @Param countdown_types query string false "Comma separated countdown types"
// @Param custom_types query string false "Comma separated custom countdown names"
// @Param members query string false "Comma separated user IDs"
// @Param cross_account query bool false "Include shares from other accounts"
// @Success 200 {object} response.Envelope
// @Router /accounts/{accountId}/calendar/events [get]
func (h *CalendarHandler) Events(c *gin.Context) {
	req, ok := h.load(c)
	if !ok {
		return
	}
	groups := req.view.Groups(req.mode)
	payload := dto.CalendarEventsResponse{
		View:   string(req.mode),
		Events: h.toEvents(req.view, req.view.Active(req.mode)),
		Groups: h.toGroups(req.view, groups),
	}
	response.JSON(c, http.StatusOK, payload, middleware.ExtractMeta(c))
}

// Day godoc
// @Summary Events of one day
// @Tags Calendar
// @Produce json
// @Param accountId path string true "Account ID"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /accounts/{accountId}/calendar/day [get]
func (h *CalendarHandler) Day(c *gin.Context) {
	day := h.calendar.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := parseDay(raw, h.calendar.Location())
		if err != nil {
			response.Error(c, err)
			return
		}
		day = parsed
	}
	req, ok := h.load(c)
	if !ok {
		return
	}
	payload := dto.CalendarDayResponse{
		View:   string(req.mode),
		Day:    day.Format(dayLayout),
		Events: h.toEvents(req.view, req.view.EventsOn(req.mode, day)),
	}
	response.JSON(c, http.StatusOK, payload, middleware.ExtractMeta(c))
}

// Month godoc
// @Summary Month grid with day dots
// @Tags Calendar
// @Produce json
// @Param accountId path string true "Account ID"
// @Param month query string false "YYYY-MM, defaults to the current month"
// @Param nav query string false "next, prev or today"
// @Param selected query string false "Selected day YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /accounts/{accountId}/calendar/month [get]
func (h *CalendarHandler) Month(c *gin.Context) {
	loc := h.calendar.Location()
	nav := service.NewCalendarNavigator(h.calendar.Now, loc)
	if raw := c.Query("month"); raw != "" {
		month, err := parseMonth(raw, loc)
		if err != nil {
			response.Error(c, err)
			return
		}
		nav.ShowMonth(month)
	}
	switch c.Query("nav") {
	case "":
	case "next":
		nav.NextMonth()
	case "prev":
		nav.PreviousMonth()
	case "today":
		nav.GoToToday()
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "nav must be next, prev or today"))
		return
	}
	if raw := c.Query("selected"); raw != "" {
		selected, err := parseDay(raw, loc)
		if err != nil {
			response.Error(c, err)
			return
		}
		nav.Select(selected)
	}

	req, ok := h.load(c)
	if !ok {
		return
	}
	events := req.view.EventsInMonth(req.mode, nav.CurrentMonth)
	prefix := nav.CurrentMonth.Format(monthLayout)
	dots := map[string][]string{}
	for day, colors := range req.view.DotColors(req.mode) {
		if strings.HasPrefix(day, prefix) {
			dots[day] = colors
		}
	}
	payload := dto.CalendarMonthResponse{
		View: string(req.mode),
		Navigator: dto.NavigatorState{
			CurrentMonth: prefix,
			Today:        h.calendar.Now().Format(dayLayout),
		},
		Events: h.toEvents(req.view, events),
		Groups: h.toGroups(req.view, service.GroupByDay(events)),
		Dots:   dots,
	}
	if nav.SelectedDate != nil {
		selected := nav.SelectedDate.Format(dayLayout)
		payload.Navigator.SelectedDate = &selected
		payload.Selected = h.toEvents(req.view, req.view.EventsOn(req.mode, *nav.SelectedDate))
	}
	response.JSON(c, http.StatusOK, payload, middleware.ExtractMeta(c))
}

// Filters godoc
// @Summary Available calendar filter options
// @Tags Calendar
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Router /accounts/{accountId}/calendar/filters [get]
func (h *CalendarHandler) Filters(c *gin.Context) {
	req, ok := h.load(c)
	if !ok {
		return
	}
	snap := req.view.Snapshot()
	payload := dto.CalendarFiltersResponse{
		Types:                make([]dto.FilterOption, 0, len(models.AllFilterTypes)),
		CountdownTypes:       make([]dto.FilterOption, 0, len(models.StandardCountdownTypes)),
		CustomCountdownNames: append([]string{}, snap.CustomCountdownNames...),
		Members:              make([]dto.RosterEntry, 0, len(snap.Members)),
	}
	for _, t := range models.AllFilterTypes {
		payload.Types = append(payload.Types, dto.FilterOption{
			Value: string(t),
			Label: filterLabels[t],
			Color: h.palette.Color(string(t)),
		})
	}
	for _, t := range models.StandardCountdownTypes {
		payload.CountdownTypes = append(payload.CountdownTypes, dto.FilterOption{
			Value: string(t),
			Label: strings.ToUpper(string(t)[:1]) + string(t)[1:],
		})
	}
	for _, m := range snap.Members {
		name := m.DisplayName
		if name == "" {
			name = m.Email
		}
		payload.Members = append(payload.Members, dto.RosterEntry{
			UserID:      m.UserID,
			DisplayName: name,
			Role:        m.Role,
			Source:      m.Source,
		})
	}
	response.JSON(c, http.StatusOK, payload, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the month agenda
// @Tags Calendar
// @Produce text/csv
// @Produce application/pdf
// @Param accountId path string true "Account ID"
// @Param format query string true "csv or pdf"
// @Param month query string false "YYYY-MM"
// @Success 200 {file} file
// @Router /accounts/{accountId}/calendar/export [get]
func (h *CalendarHandler) Export(c *gin.Context) {
	format, ok := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
	if !ok {
		response.Error(c, appErrors.ErrUnsupportedExport)
		return
	}
	month := service.FirstOfMonth(h.calendar.Now())
	if raw := c.Query("month"); raw != "" {
		parsed, err := parseMonth(raw, h.calendar.Location())
		if err != nil {
			response.Error(c, err)
			return
		}
		month = parsed
	}
	req, ok := h.load(c)
	if !ok {
		return
	}
	result, err := h.exports.Agenda(req.view, req.mode, month, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.ContentType, result.Filename, result.Body)
}

// FeedLink godoc
// @Summary Signed family calendar subscription URL
// @Tags Calendar
// @Produce json
// @Param accountId path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Router /accounts/{accountId}/calendar/feed [get]
func (h *CalendarHandler) FeedLink(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.exports.FeedLink(accountIDParam(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// CreateShare godoc
// @Summary Share an appointment or countdown with family members
// @Tags Calendar
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param payload body models.ShareRequest true "Share payload"
// @Success 201 {object} response.Envelope
// @Router /accounts/{accountId}/calendar/shares [post]
func (h *CalendarHandler) CreateShare(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid share payload"))
		return
	}
	share, members, err := h.shares.Share(c.Request.Context(), accountIDParam(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ShareResponse{Share: share, MemberUserIDs: members})
}

// DeleteShare godoc
// @Summary Stop sharing an event
// @Tags Calendar
// @Param accountId path string true "Account ID"
// @Param shareId path string true "Share ID"
// @Success 204
// @Router /accounts/{accountId}/calendar/shares/{shareId} [delete]
func (h *CalendarHandler) DeleteShare(c *gin.Context) {
	if err := h.shares.Unshare(c.Request.Context(), accountIDParam(c), c.Param("shareId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// load parses the shared calendar query, loads the snapshot and records a
// partial load on the response meta.
func (h *CalendarHandler) load(c *gin.Context) (*calendarRequest, bool) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	filter, err := parseCalendarFilter(c)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	crossAccount := false
	if raw := c.Query("cross_account"); raw != "" {
		crossAccount, err = strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cross_account must be a boolean"))
			return nil, false
		}
	}

	snap, err := h.calendar.Load(c.Request.Context(), service.LoadRequest{
		AccountID:    accountIDParam(c),
		UserID:       userID,
		CrossAccount: crossAccount,
	})
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrInternal.Code {
			err = appErrors.Wrap(err, appErrors.ErrCalendarUnavailable.Code, appErrors.ErrCalendarUnavailable.Status, appErrors.ErrCalendarUnavailable.Message)
		}
		response.Error(c, err)
		return nil, false
	}
	middleware.SetLoadOutcome(c, snap.LoadError, snap.DegradedSources)
	return &calendarRequest{
		mode: service.ParseStreamMode(c.Query("view")),
		view: service.NewCalendarView(snap, filter, h.palette),
	}, true
}

func parseCalendarFilter(c *gin.Context) (service.CalendarFilter, error) {
	var filter service.CalendarFilter
	if types, ok := listQuery(c, "types"); ok {
		filter.Types = make([]models.CalendarFilterType, 0, len(types))
		for _, raw := range types {
			t := models.CalendarFilterType(raw)
			if !t.Valid() {
				return filter, appErrors.Clone(appErrors.ErrValidation, "unknown calendar type "+raw)
			}
			filter.Types = append(filter.Types, t)
		}
	}
	if types, ok := listQuery(c, "countdown_types"); ok {
		filter.CountdownTypes = make([]models.CountdownType, 0, len(types))
		for _, raw := range types {
			t := models.CountdownType(raw)
			if !isStandardCountdownType(t) {
				return filter, appErrors.Clone(appErrors.ErrValidation, "unknown countdown type "+raw)
			}
			filter.CountdownTypes = append(filter.CountdownTypes, t)
		}
	}
	if names, ok := listQuery(c, "custom_types"); ok {
		filter.CustomCountdownNames = names
	}
	if members, ok := listQuery(c, "members"); ok {
		filter.Members = members
	}
	return filter, nil
}

func isStandardCountdownType(t models.CountdownType) bool {
	for _, known := range models.StandardCountdownTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (h *CalendarHandler) toEvents(view *service.CalendarView, events []models.CalendarEvent) []dto.CalendarEvent {
	out := make([]dto.CalendarEvent, 0, len(events))
	for _, ev := range events {
		item := dto.CalendarEvent{
			Key:       ev.Key(),
			Type:      ev.FilterType(),
			Title:     ev.Title(),
			Date:      ev.Date(),
			Day:       ev.Date().Format(dayLayout),
			Color:     h.palette.Color(string(ev.FilterType())),
			ProfileID: ev.AttributedProfileID(),
			IsShared:  models.IsSharedToFamily(ev),
			Payload:   ev,
		}
		if share, ok := view.ShareFor(ev); ok {
			item.ShareID = share.ID
		}
		out = append(out, item)
	}
	return out
}

func (h *CalendarHandler) toGroups(view *service.CalendarView, groups []service.EventGroup) []dto.CalendarEventGroup {
	out := make([]dto.CalendarEventGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, dto.CalendarEventGroup{
			Day:    g.Date.Format(dayLayout),
			Events: h.toEvents(view, g.Events),
		})
	}
	return out
}
