package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

// NoteRepository is the hosted note store. Rows are unique per
// (account_id, local_id) and are soft-deleted.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs the repository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

var noteColumns = []string{
	"id", "account_id", "user_id", "local_id", "title", "content", "content_plain_text",
	"theme", "is_pinned", "created_at", "updated_at", "deleted_at",
}

var noteReturning = "RETURNING " + strings.Join(noteColumns, ", ")

// Insert stores the note or, when the (account, local ID) pair already
// exists, overwrites its content unless the stored row is newer. A
// soft-deleted row is never revived and yields ErrNoteDeleted; a newer row
// yields ErrNoteStale.
func (r *NoteRepository) Insert(ctx context.Context, in models.NoteWrite) (*models.RemoteNote, error) {
	query, args, err := psql.Insert("notes").
		Columns("id", "account_id", "user_id", "local_id", "title", "content", "content_plain_text", "theme", "is_pinned", "created_at", "updated_at").
		Values(uuid.NewString(), in.AccountID, in.UserID, in.LocalID, in.Title, in.Content, in.ContentPlainText, themeOrDefault(in.Theme), in.IsPinned, in.CreatedAt, in.UpdatedAt).
		Suffix(`ON CONFLICT (account_id, local_id) DO UPDATE SET
    user_id = EXCLUDED.user_id,
    title = EXCLUDED.title,
    content = EXCLUDED.content,
    content_plain_text = EXCLUDED.content_plain_text,
    theme = EXCLUDED.theme,
    is_pinned = EXCLUDED.is_pinned,
    updated_at = EXCLUDED.updated_at
WHERE notes.deleted_at IS NULL AND notes.updated_at <= EXCLUDED.updated_at ` + noteReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build note insert: %w", err)
	}

	var note models.RemoteNote
	if err := r.db.GetContext(ctx, &note, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.rejection(ctx, sq.Eq{"account_id": in.AccountID, "local_id": in.LocalID})
		}
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return &note, nil
}

// Update overwrites a live note by its remote ID. Unknown or deleted rows
// yield sql.ErrNoRows; a row with a newer updated_at yields ErrNoteStale.
func (r *NoteRepository) Update(ctx context.Context, remoteID string, in models.NoteWrite) (*models.RemoteNote, error) {
	query, args, err := psql.Update("notes").
		Set("title", in.Title).
		Set("content", in.Content).
		Set("content_plain_text", in.ContentPlainText).
		Set("theme", themeOrDefault(in.Theme)).
		Set("is_pinned", in.IsPinned).
		Set("updated_at", in.UpdatedAt).
		Where(sq.Eq{"id": remoteID, "account_id": in.AccountID, "deleted_at": nil}).
		Where(sq.LtOrEq{"updated_at": in.UpdatedAt}).
		Suffix(noteReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build note update: %w", err)
	}

	var note models.RemoteNote
	if err := r.db.GetContext(ctx, &note, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			rejected := r.rejection(ctx, sq.Eq{"id": remoteID, "account_id": in.AccountID})
			if errors.Is(rejected, ErrNoteDeleted) {
				return nil, sql.ErrNoRows
			}
			return nil, rejected
		}
		return nil, fmt.Errorf("update note: %w", err)
	}
	return &note, nil
}

// SoftDelete stamps deleted_at on a live note. It reports whether a row changed.
func (r *NoteRepository) SoftDelete(ctx context.Context, accountID, remoteID string, at time.Time) (bool, error) {
	query, args, err := psql.Update("notes").
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"id": remoteID, "account_id": accountID, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build note delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("soft delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("note rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListSince returns live notes of the account, newest first. A non-nil since
// restricts the result to rows updated strictly after it.
func (r *NoteRepository) ListSince(ctx context.Context, accountID string, since *time.Time) ([]models.RemoteNote, error) {
	q := psql.Select(noteColumns...).
		From("notes").
		Where(sq.Eq{"account_id": accountID, "deleted_at": nil})
	if since != nil {
		q = q.Where(sq.Gt{"updated_at": *since})
	}
	query, args, err := q.OrderBy("updated_at DESC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build note list: %w", err)
	}

	var notes []models.RemoteNote
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// rejection explains why a guarded write touched no row.
func (r *NoteRepository) rejection(ctx context.Context, where sq.Eq) error {
	query, args, err := psql.Select(noteColumns...).From("notes").Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("build note lookup: %w", err)
	}
	var current models.RemoteNote
	if err := r.db.GetContext(ctx, &current, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoteDeleted
		}
		return fmt.Errorf("lookup note: %w", err)
	}
	if current.IsDeleted() {
		return ErrNoteDeleted
	}
	return ErrNoteStale
}

func themeOrDefault(theme string) string {
	if theme == "" {
		return models.DefaultNoteTheme
	}
	return theme
}
