package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/unforgotten-api/internal/models"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	got    string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.got = token
	return v.claims, v.err
}

type finderStub struct {
	member *models.AccountMember
	err    error
}

func (f finderStub) Find(ctx context.Context, accountID, userID string) (*models.AccountMember, error) {
	return f.member, f.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/accounts/:accountId/thing", handlers...)
	return r
}

func serve(r http.Handler, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/accounts/acct/thing", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	validator := &validatorStub{claims: &models.JWTClaims{UserID: "u1"}}
	r := newRouter(JWT(validator))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Token abc").Code)

	assert.Equal(t, http.StatusOK, serve(r, "Bearer abc").Code)
	assert.Equal(t, "abc", validator.got)

	validator.err = appErrors.Clone(appErrors.ErrUnauthorized, "expired")
	assert.Equal(t, http.StatusUnauthorized, serve(r, "bearer abc").Code)
}

func TestAccountAccess(t *testing.T) {
	claims := &validatorStub{claims: &models.JWTClaims{UserID: "u1"}}

	member := &models.AccountMember{UserID: "u1", Role: models.MemberRoleViewer}
	r := newRouter(JWT(claims), AccountAccess(finderStub{member: member}, nil))
	assert.Equal(t, http.StatusOK, serve(r, "Bearer t").Code)

	r = newRouter(JWT(claims), AccountAccess(finderStub{}, nil))
	assert.Equal(t, http.StatusForbidden, serve(r, "Bearer t").Code)

	r = newRouter(JWT(claims), AccountAccess(finderStub{err: errors.New("db down")}, nil))
	assert.Equal(t, http.StatusInternalServerError, serve(r, "Bearer t").Code)

	r = newRouter(AccountAccess(finderStub{member: member}, nil))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
}

func TestRequireWriter(t *testing.T) {
	claims := &validatorStub{claims: &models.JWTClaims{UserID: "u1"}}

	viewer := &models.AccountMember{UserID: "u1", Role: models.MemberRoleViewer}
	r := newRouter(JWT(claims), AccountAccess(finderStub{member: viewer}, nil), RequireWriter())
	assert.Equal(t, http.StatusForbidden, serve(r, "Bearer t").Code)

	helper := &models.AccountMember{UserID: "u1", Role: models.MemberRoleHelper}
	r = newRouter(JWT(claims), AccountAccess(finderStub{member: helper}, nil), RequireWriter())
	assert.Equal(t, http.StatusOK, serve(r, "Bearer t").Code)
}

func TestAuditLogsSuccessfulRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	claims := &validatorStub{claims: &models.JWTClaims{UserID: "u1"}}
	r := newRouter(JWT(claims), Audit(zap.New(core), "share", "calendar_share"))

	require.Equal(t, http.StatusOK, serve(r, "Bearer t").Code)
	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "share", fields["action"])
	assert.Equal(t, "acct", fields["account_id"])
	assert.Equal(t, "u1", fields["user_id"])

	serve(r, "")
	assert.Len(t, logs.FilterMessage("audit").All(), 1)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SetCacheHit(c, true)
	SetLoadOutcome(c, "family members could not be loaded", []string{"members"})
	SetLoadOutcome(c, "", nil)

	meta := ExtractMeta(c)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, "family members could not be loaded", meta["load_error"])
	assert.Equal(t, []string{"members"}, meta["degraded_sources"])
}
