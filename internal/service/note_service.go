package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/unforgotten-api/internal/models"
	"github.com/noah-isme/unforgotten-api/internal/repository"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
)

type remoteNoteStore interface {
	Insert(ctx context.Context, in models.NoteWrite) (*models.RemoteNote, error)
	Update(ctx context.Context, remoteID string, in models.NoteWrite) (*models.RemoteNote, error)
	SoftDelete(ctx context.Context, accountID, remoteID string, at time.Time) (bool, error)
	ListSince(ctx context.Context, accountID string, since *time.Time) ([]models.RemoteNote, error)
}

// NoteRequest is the payload for storing a note on the hosted store.
type NoteRequest struct {
	LocalID          string     `json:"local_id" validate:"required"`
	Title            string     `json:"title" validate:"max=500"`
	Content          []byte     `json:"content"`
	ContentPlainText string     `json:"content_plain_text"`
	Theme            string     `json:"theme"`
	IsPinned         bool       `json:"is_pinned"`
	CreatedAt        *time.Time `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

// NoteService exposes the hosted note store to API clients.
type NoteService struct {
	store     remoteNoteStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewNoteService constructs the service.
func NewNoteService(store remoteNoteStore, validate *validator.Validate, logger *zap.Logger) *NoteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteService{store: store, validator: validate, logger: logger, now: time.Now}
}

// List returns live notes of the account, newest first, optionally only
// those updated after since.
func (s *NoteService) List(ctx context.Context, accountID string, since *time.Time) ([]models.RemoteNote, error) {
	notes, err := s.store.ListSince(ctx, accountID, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	if notes == nil {
		notes = []models.RemoteNote{}
	}
	return notes, nil
}

// Upsert stores the note keyed by its local ID.
func (s *NoteService) Upsert(ctx context.Context, accountID, userID string, req NoteRequest) (*models.RemoteNote, error) {
	write, err := s.buildWrite(accountID, userID, req)
	if err != nil {
		return nil, err
	}
	note, err := s.store.Insert(ctx, write)
	if err != nil {
		if errors.Is(err, repository.ErrNoteDeleted) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "note has been deleted")
		}
		if errors.Is(err, repository.ErrNoteStale) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a newer version of the note exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save note")
	}
	return note, nil
}

// Update overwrites a note by its remote ID.
func (s *NoteService) Update(ctx context.Context, accountID, userID, remoteID string, req NoteRequest) (*models.RemoteNote, error) {
	write, err := s.buildWrite(accountID, userID, req)
	if err != nil {
		return nil, err
	}
	note, err := s.store.Update(ctx, remoteID, write)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		if errors.Is(err, repository.ErrNoteStale) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a newer version of the note exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update note")
	}
	return note, nil
}

// Delete soft-deletes a note.
func (s *NoteService) Delete(ctx context.Context, accountID, remoteID string) error {
	deleted, err := s.store.SoftDelete(ctx, accountID, remoteID, s.now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete note")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "note not found")
	}
	return nil
}

func (s *NoteService) buildWrite(accountID, userID string, req NoteRequest) (models.NoteWrite, error) {
	now := s.now().UTC()
	write := models.NoteWrite{
		AccountID:        accountID,
		UserID:           userID,
		LocalID:          req.LocalID,
		Title:            req.Title,
		Content:          req.Content,
		ContentPlainText: req.ContentPlainText,
		Theme:            req.Theme,
		IsPinned:         req.IsPinned,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.CreatedAt != nil {
		write.CreatedAt = req.CreatedAt.UTC()
	}
	if req.UpdatedAt != nil {
		write.UpdatedAt = req.UpdatedAt.UTC()
	}
	if write.Theme == "" {
		write.Theme = models.DefaultNoteTheme
	}
	if err := s.validator.Struct(write); err != nil {
		return models.NoteWrite{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}
	return write, nil
}
