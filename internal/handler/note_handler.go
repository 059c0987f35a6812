package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unforgotten-api/internal/models"
	"github.com/noah-isme/unforgotten-api/internal/service"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
	"github.com/noah-isme/unforgotten-api/pkg/response"
)

type noteService interface {
	List(ctx context.Context, accountID string, since *time.Time) ([]models.RemoteNote, error)
	Upsert(ctx context.Context, accountID, userID string, req service.NoteRequest) (*models.RemoteNote, error)
	Update(ctx context.Context, accountID, userID, remoteID string, req service.NoteRequest) (*models.RemoteNote, error)
	Delete(ctx context.Context, accountID, remoteID string) error
}

// NoteHandler exposes the hosted note store.
type NoteHandler struct {
	notes noteService
}

// NewNoteHandler constructs the handler.
func NewNoteHandler(notes noteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// List godoc
// @Summary List notes
// @Tags Notes
// @Produce json
// @Param accountId path string true "Account ID"
// @Param since query string false "RFC3339 timestamp for delta fetches"
// @Success 200 {object} response.Envelope
// @Router /accounts/{accountId}/notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "since must be RFC3339"))
			return
		}
		since = &parsed
	}
	notes, err := h.notes.List(c.Request.Context(), accountIDParam(c), since)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, map[string]interface{}{"count": len(notes)})
}

// Create godoc
// @Summary Store a note keyed by its local ID
// @Tags Notes
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param payload body service.NoteRequest true "Note payload"
// @Success 201 {object} response.Envelope
// @Router /accounts/{accountId}/notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	userID, req, ok := h.bind(c)
	if !ok {
		return
	}
	note, err := h.notes.Upsert(c.Request.Context(), accountIDParam(c), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// Update godoc
// @Summary Update a note by its remote ID
// @Tags Notes
// @Accept json
// @Produce json
// @Param accountId path string true "Account ID"
// @Param noteId path string true "Remote note ID"
// @Param payload body service.NoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Router /accounts/{accountId}/notes/{noteId} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	userID, req, ok := h.bind(c)
	if !ok {
		return
	}
	note, err := h.notes.Update(c.Request.Context(), accountIDParam(c), userID, c.Param("noteId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Delete godoc
// @Summary Soft delete a note
// @Tags Notes
// @Param accountId path string true "Account ID"
// @Param noteId path string true "Remote note ID"
// @Success 204
// @Router /accounts/{accountId}/notes/{noteId} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), accountIDParam(c), c.Param("noteId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *NoteHandler) bind(c *gin.Context) (string, service.NoteRequest, bool) {
	var req service.NoteRequest
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return "", req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return "", req, false
	}
	return userID, req, true
}
