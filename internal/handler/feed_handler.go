package handler

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/unforgotten-api/internal/service"
	"github.com/noah-isme/unforgotten-api/pkg/config"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
	"github.com/noah-isme/unforgotten-api/pkg/ical"
	"github.com/noah-isme/unforgotten-api/pkg/response"
	"github.com/noah-isme/unforgotten-api/pkg/storage"
)

type feedRenderer interface {
	ResolveFeedToken(token string) (storage.FeedClaims, error)
	FamilyFeed(view *service.CalendarView, loc *time.Location) ical.Feed
}

type membershipChecker interface {
	IsMember(ctx context.Context, accountID, userID string) (bool, error)
}

// FeedHandler serves token-authenticated iCalendar subscriptions.
type FeedHandler struct {
	calendar calendarLoader
	feeds    feedRenderer
	members  membershipChecker
	palette  config.Palette
	logger   *zap.Logger
}

// NewFeedHandler constructs the handler. Tokens are honoured only while their
// user is still a member of the account.
func NewFeedHandler(calendar calendarLoader, feeds feedRenderer, members membershipChecker, palette config.Palette, logger *zap.Logger) *FeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{calendar: calendar, feeds: feeds, members: members, palette: palette, logger: logger}
}

// Family godoc
// @Summary Family calendar iCalendar feed
// @Tags Feeds
// @Produce text/calendar
// @Param token query string true "Signed feed token"
// @Success 200 {string} string
// @Router /feeds/family.ics [get]
func (h *FeedHandler) Family(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.ErrInvalidFeedToken)
		return
	}
	claims, err := h.feeds.ResolveFeedToken(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	member, err := h.members.IsMember(c.Request.Context(), claims.AccountID, claims.UserID)
	if err != nil {
		h.logger.Error("feed membership lookup failed", zap.String("account_id", claims.AccountID), zap.Error(err))
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify feed access"))
		return
	}
	if !member {
		response.Error(c, appErrors.ErrInvalidFeedToken)
		return
	}
	snap, err := h.calendar.Load(c.Request.Context(), service.LoadRequest{
		AccountID: claims.AccountID,
		UserID:    claims.UserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if snap.Degraded() {
		h.logger.Warn("serving degraded family feed",
			zap.String("account_id", claims.AccountID),
			zap.Strings("degraded_sources", snap.DegradedSources))
	}

	view := service.NewCalendarView(snap, service.DefaultFilter(snap), h.palette)
	var buf bytes.Buffer
	if err := ical.Write(&buf, h.feeds.FamilyFeed(view, h.calendar.Location())); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render feed"))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}
