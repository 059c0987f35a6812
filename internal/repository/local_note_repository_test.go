package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unforgotten-api/internal/models"
)

type localNoteStore interface {
	Get(ctx context.Context, id string) (*models.LocalNote, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.LocalNote, error)
	ListUnsynced(ctx context.Context, accountID string) ([]models.LocalNote, error)
	Save(ctx context.Context, note models.LocalNote) error
	SaveAll(ctx context.Context, notes []models.LocalNote) error
	Delete(ctx context.Context, id string) error
}

func strPtr(s string) *string { return &s }

func exerciseLocalNoteStore(t *testing.T, store localNoteStore) {
	ctx := context.Background()
	base := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveAll(ctx, []models.LocalNote{
		{ID: "n1", AccountID: strPtr("acct-1"), Title: "old", UpdatedAt: base, IsSynced: true},
		{ID: "n2", AccountID: strPtr("acct-1"), Title: "new", UpdatedAt: base.Add(time.Minute), Content: []byte("x")},
		{ID: "n3", AccountID: strPtr("acct-2"), Title: "other", UpdatedAt: base},
		{ID: "n4", Title: "orphan", UpdatedAt: base},
	}))

	notes, err := store.ListByAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n2", notes[0].ID)
	assert.Equal(t, "n1", notes[1].ID)

	unsynced, err := store.ListUnsynced(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, "n2", unsynced[0].ID)

	got, err := store.Get(ctx, "n2")
	require.NoError(t, err)
	got.Content[0] = 'y'
	again, err := store.Get(ctx, "n2")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), again.Content)

	require.NoError(t, store.Delete(ctx, "n2"))
	_, err = store.Get(ctx, "n2")
	assert.True(t, errors.Is(err, ErrLocalNoteNotFound))

	assert.Error(t, store.SaveAll(ctx, []models.LocalNote{{ID: "n5"}, {Title: "no id"}}))
	_, err = store.Get(ctx, "n5")
	assert.True(t, errors.Is(err, ErrLocalNoteNotFound))
}

func TestMemoryLocalNoteStore(t *testing.T) {
	exerciseLocalNoteStore(t, NewMemoryLocalNoteStore())
}

func TestFileLocalNoteStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileLocalNoteStore(dir)
	require.NoError(t, err)
	exerciseLocalNoteStore(t, store)

	reopened, err := NewFileLocalNoteStore(dir)
	require.NoError(t, err)
	notes, err := reopened.ListByAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "n1", notes[0].ID)
	assert.True(t, notes[0].IsSynced)
}
