package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unforgotten-api/internal/middleware"
	"github.com/noah-isme/unforgotten-api/internal/models"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// currentUserID returns the authenticated user or an unauthorized error.
func currentUserID(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return "", appErrors.ErrUnauthorized
	}
	return claims.UserID, nil
}

func accountIDParam(c *gin.Context) string {
	return c.Param(middleware.AccountParam)
}

// listQuery splits a comma separated query parameter. The second result is
// false when the parameter is absent; a present but blank parameter yields an
// empty, non-nil slice.
func listQuery(c *gin.Context, key string) ([]string, bool) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil, false
	}
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, true
}

func parseDay(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, raw, loc)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	return t, nil
}

func parseMonth(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(monthLayout, raw, loc)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "month must be YYYY-MM")
	}
	return t, nil
}
