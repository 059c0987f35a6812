package models

import "time"

// DefaultNoteTheme is applied when a note carries no theme.
const DefaultNoteTheme = "standard"

// LocalNote is the device-side copy of a note. ID is stable for the life of
// the note; RemoteID is only assigned by a merge from the remote store.
type LocalNote struct {
	ID               string    `json:"id"`
	AccountID        *string   `json:"account_id,omitempty"`
	Title            string    `json:"title"`
	Content          []byte    `json:"content,omitempty"`
	ContentPlainText string    `json:"content_plain_text"`
	Theme            string    `json:"theme"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	IsPinned         bool      `json:"is_pinned"`
	IsSynced         bool      `json:"is_synced"`
	RemoteID         *string   `json:"remote_id,omitempty"`
}

// NoteEdit carries a local mutation. Nil fields are left untouched.
type NoteEdit struct {
	Title            *string
	Content          []byte
	ContentPlainText *string
	Theme            *string
	IsPinned         *bool
}

// Apply mutates the note, bumps UpdatedAt and marks it unsynced.
func (n *LocalNote) Apply(edit NoteEdit, at time.Time) {
	if edit.Title != nil {
		n.Title = *edit.Title
	}
	if edit.Content != nil {
		n.Content = append([]byte(nil), edit.Content...)
	}
	if edit.ContentPlainText != nil {
		n.ContentPlainText = *edit.ContentPlainText
	}
	if edit.Theme != nil {
		n.Theme = *edit.Theme
	}
	if edit.IsPinned != nil {
		n.IsPinned = *edit.IsPinned
	}
	n.UpdatedAt = at
	n.IsSynced = false
}

// BelongsTo reports whether the note is associated with accountID.
func (n LocalNote) BelongsTo(accountID string) bool {
	return n.AccountID != nil && *n.AccountID == accountID
}

// RemoteNote mirrors a row of the hosted notes table.
type RemoteNote struct {
	RemoteID         string     `db:"id" json:"id"`
	AccountID        string     `db:"account_id" json:"account_id"`
	UserID           string     `db:"user_id" json:"user_id"`
	LocalID          string     `db:"local_id" json:"local_id"`
	Title            string     `db:"title" json:"title"`
	Content          []byte     `db:"content" json:"content,omitempty"`
	ContentPlainText string     `db:"content_plain_text" json:"content_plain_text"`
	Theme            string     `db:"theme" json:"theme"`
	IsPinned         bool       `db:"is_pinned" json:"is_pinned"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the row is soft-deleted.
func (r RemoteNote) IsDeleted() bool {
	return r.DeletedAt != nil
}

// NoteWrite is the payload pushed to the remote store for insert or update.
type NoteWrite struct {
	AccountID        string    `json:"account_id" validate:"required"`
	UserID           string    `json:"user_id" validate:"required"`
	LocalID          string    `json:"local_id" validate:"required"`
	Title            string    `json:"title" validate:"max=500"`
	Content          []byte    `json:"content,omitempty"`
	ContentPlainText string    `json:"content_plain_text"`
	Theme            string    `json:"theme"`
	IsPinned         bool      `json:"is_pinned"`
	CreatedAt        time.Time `json:"created_at" validate:"required"`
	UpdatedAt        time.Time `json:"updated_at" validate:"required"`
}
