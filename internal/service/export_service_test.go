package service

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/unforgotten-api/pkg/config"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
	"github.com/noah-isme/unforgotten-api/pkg/export"
	"github.com/noah-isme/unforgotten-api/pkg/ical"
	"github.com/noah-isme/unforgotten-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) *ExportService {
	t.Helper()
	signer := storage.NewFeedTokenSigner("feed-secret", time.Hour)
	cfg := ExportConfig{PublicBaseURL: "https://api.example.com/", APIPrefix: "/api/v1"}
	return NewExportService(signer, config.DefaultPalette(), cfg, zap.NewNop())
}

func TestExportAgendaCSV(t *testing.T) {
	svc := newExportServiceForTest(t)
	view := NewCalendarView(viewFixture(), CalendarFilter{}, config.DefaultPalette())

	result, err := svc.Agenda(view, StreamAll, day(2025, time.June, 1), export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "calendar-2025-06.csv", result.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)

	records, err := csv.NewReader(bytes.NewReader(result.Body)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, agendaHeaders, records[0])
	assert.Len(t, records, 1+len(view.EventsInMonth(StreamAll, day(2025, time.June, 1))))

	first := records[1]
	assert.Equal(t, "2025-06-02", first[0])
	assert.Equal(t, "Dentist", first[3])
	assert.Equal(t, "yes", first[5])
}

func TestExportAgendaPDF(t *testing.T) {
	svc := newExportServiceForTest(t)
	view := NewCalendarView(viewFixture(), CalendarFilter{}, config.DefaultPalette())

	result, err := svc.Agenda(view, StreamFamily, day(2025, time.June, 1), export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "calendar-2025-06.pdf", result.Filename)
	assert.True(t, bytes.HasPrefix(result.Body, []byte("%PDF")))
}

func TestExportAgendaUnsupportedFormat(t *testing.T) {
	svc := newExportServiceForTest(t)
	view := NewCalendarView(viewFixture(), CalendarFilter{}, config.DefaultPalette())

	_, err := svc.Agenda(view, StreamAll, day(2025, time.June, 1), export.Format("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnsupportedExport.Code, appErrors.FromError(err).Code)
}

func TestExportFeedLinkRoundTrip(t *testing.T) {
	svc := newExportServiceForTest(t)

	link, err := svc.FeedLink("acct", "u1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "https://api.example.com/api/v1/feeds/family.ics?token="))

	claims, err := svc.ResolveFeedToken(link.Token)
	require.NoError(t, err)
	assert.Equal(t, "acct", claims.AccountID)
	assert.Equal(t, "u1", claims.UserID)

	_, err = svc.ResolveFeedToken(link.Token + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidFeedToken.Code, appErrors.FromError(err).Code)
}

func TestExportFeedLinkWithoutSigner(t *testing.T) {
	svc := NewExportService(nil, config.DefaultPalette(), ExportConfig{}, nil)
	_, err := svc.FeedLink("acct", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrServiceUnavailable.Code, appErrors.FromError(err).Code)
}

func TestExportFamilyFeedContainsOnlySharedEvents(t *testing.T) {
	svc := newExportServiceForTest(t)
	view := NewCalendarView(viewFixture(), CalendarFilter{}, config.DefaultPalette())

	feed := svc.FamilyFeed(view, time.UTC)
	require.Len(t, feed.Events, 2)
	assert.Equal(t, "appointment-a1@unforgotten", feed.Events[0].UID)
	assert.Equal(t, "Dentist", feed.Events[0].Summary)
	assert.Contains(t, feed.Events[0].Description, "for Ann")
	assert.True(t, feed.Events[1].AllDay)

	body := ical.Render(feed)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "Dentist")
}
