package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unforgotten-api/internal/middleware"
	"github.com/noah-isme/unforgotten-api/internal/models"
	"github.com/noah-isme/unforgotten-api/internal/service"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
)

type noteServiceMock struct {
	notes      []models.RemoteNote
	note       *models.RemoteNote
	err        error
	lastSince  *time.Time
	lastUser   string
	lastRemote string
	lastReq    service.NoteRequest
	upserted   bool
	updated    bool
	deleted    bool
}

func (m *noteServiceMock) List(ctx context.Context, accountID string, since *time.Time) ([]models.RemoteNote, error) {
	m.lastSince = since
	return m.notes, m.err
}

func (m *noteServiceMock) Upsert(ctx context.Context, accountID, userID string, req service.NoteRequest) (*models.RemoteNote, error) {
	m.upserted = true
	m.lastUser = userID
	m.lastReq = req
	return m.note, m.err
}

func (m *noteServiceMock) Update(ctx context.Context, accountID, userID, remoteID string, req service.NoteRequest) (*models.RemoteNote, error) {
	m.updated = true
	m.lastRemote = remoteID
	m.lastReq = req
	return m.note, m.err
}

func (m *noteServiceMock) Delete(ctx context.Context, accountID, remoteID string) error {
	m.deleted = true
	m.lastRemote = remoteID
	return m.err
}

func newNoteRouter(svc *noteServiceMock, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewNoteHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	g := r.Group("/accounts/:accountId/notes")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PUT("/:noteId", h.Update)
	g.DELETE("/:noteId", h.Delete)
	return r
}

func TestNoteHandlerListWithSince(t *testing.T) {
	svc := &noteServiceMock{notes: []models.RemoteNote{{RemoteID: "r1", LocalID: "n1", Title: "Groceries"}}}
	r := newNoteRouter(svc, testClaims)

	w := doRequest(r, http.MethodGet, "/accounts/acct/notes?since=2025-06-01T09:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastSince)
	assert.True(t, svc.lastSince.Equal(time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)))

	var notes []models.RemoteNote
	env := decodeEnvelope(t, w, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "r1", notes[0].RemoteID)
	assert.EqualValues(t, 1, env.Meta["count"])

	w = doRequest(r, http.MethodGet, "/accounts/acct/notes?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNoteHandlerCreate(t *testing.T) {
	svc := &noteServiceMock{note: &models.RemoteNote{RemoteID: "r1", LocalID: "n1"}}
	r := newNoteRouter(svc, testClaims)

	w := doRequest(r, http.MethodPost, "/accounts/acct/notes", []byte(`{"local_id":"n1","title":"Groceries","is_pinned":true}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, svc.upserted)
	assert.Equal(t, "u1", svc.lastUser)
	assert.Equal(t, "n1", svc.lastReq.LocalID)
	assert.True(t, svc.lastReq.IsPinned)

	w = doRequest(r, http.MethodPost, "/accounts/acct/notes", []byte(`{"local_id":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNoteHandlerCreateDeletedConflict(t *testing.T) {
	svc := &noteServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "note has been deleted")}
	r := newNoteRouter(svc, testClaims)

	w := doRequest(r, http.MethodPost, "/accounts/acct/notes", []byte(`{"local_id":"n1"}`))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNoteHandlerRequiresUserForWrites(t *testing.T) {
	svc := &noteServiceMock{}
	r := newNoteRouter(svc, nil)

	w := doRequest(r, http.MethodPost, "/accounts/acct/notes", []byte(`{"local_id":"n1"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, svc.upserted)
}

func TestNoteHandlerUpdateAndDelete(t *testing.T) {
	svc := &noteServiceMock{note: &models.RemoteNote{RemoteID: "r7"}}
	r := newNoteRouter(svc, testClaims)

	w := doRequest(r, http.MethodPut, "/accounts/acct/notes/r7", []byte(`{"local_id":"n7","title":"Edited"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.updated)
	assert.Equal(t, "r7", svc.lastRemote)
	assert.Equal(t, "Edited", svc.lastReq.Title)

	w = doRequest(r, http.MethodDelete, "/accounts/acct/notes/r7", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, svc.deleted)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "note not found")
	w = doRequest(r, http.MethodDelete, "/accounts/acct/notes/r8", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
