package repository

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
)

// psql builds Postgres-flavoured statements for the dynamic note and share queries.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var (
	// ErrNoteDeleted is returned when a write targets a soft-deleted note.
	ErrNoteDeleted = errors.New("note is deleted")
	// ErrNoteStale is returned when the stored row carries a newer updated_at
	// than the write.
	ErrNoteStale = errors.New("note has a newer remote version")
	// ErrLocalNoteNotFound is returned by local stores for unknown IDs.
	ErrLocalNoteNotFound = errors.New("local note not found")
)
