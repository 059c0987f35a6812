package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/unforgotten-api/internal/models"
	"github.com/noah-isme/unforgotten-api/pkg/storage"
)

// MemoryLocalNoteStore keeps device notes in memory.
type MemoryLocalNoteStore struct {
	mu    sync.RWMutex
	notes map[string]models.LocalNote
}

// NewMemoryLocalNoteStore returns an empty store.
func NewMemoryLocalNoteStore() *MemoryLocalNoteStore {
	return &MemoryLocalNoteStore{notes: make(map[string]models.LocalNote)}
}

// Get returns a copy of the note or ErrLocalNoteNotFound.
func (s *MemoryLocalNoteStore) Get(ctx context.Context, id string) (*models.LocalNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[id]
	if !ok {
		return nil, ErrLocalNoteNotFound
	}
	out := cloneLocalNote(note)
	return &out, nil
}

// ListByAccount returns the account's notes, most recently updated first.
func (s *MemoryLocalNoteStore) ListByAccount(ctx context.Context, accountID string) ([]models.LocalNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterLocalNotes(s.notes, func(n models.LocalNote) bool { return n.BelongsTo(accountID) }), nil
}

// ListUnsynced returns the account's notes awaiting a push.
func (s *MemoryLocalNoteStore) ListUnsynced(ctx context.Context, accountID string) ([]models.LocalNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterLocalNotes(s.notes, func(n models.LocalNote) bool { return n.BelongsTo(accountID) && !n.IsSynced }), nil
}

// Save inserts or replaces one note.
func (s *MemoryLocalNoteStore) Save(ctx context.Context, note models.LocalNote) error {
	return s.SaveAll(ctx, []models.LocalNote{note})
}

// SaveAll inserts or replaces every note at once.
func (s *MemoryLocalNoteStore) SaveAll(ctx context.Context, notes []models.LocalNote) error {
	if err := validateLocalNotes(notes); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range notes {
		s.notes[n.ID] = cloneLocalNote(n)
	}
	return nil
}

// Delete removes a note if present.
func (s *MemoryLocalNoteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, id)
	return nil
}

const localNotesFile = "notes.json"

type localNotesDocument struct {
	Version int                `json:"version"`
	Notes   []models.LocalNote `json:"notes"`
}

// FileLocalNoteStore persists device notes as a single JSON document that is
// replaced atomically on every write.
type FileLocalNoteStore struct {
	files *storage.LocalStorage

	mu     sync.Mutex
	loaded bool
	notes  map[string]models.LocalNote
}

// NewFileLocalNoteStore opens (or creates) a store under dir.
func NewFileLocalNoteStore(dir string) (*FileLocalNoteStore, error) {
	files, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}
	return &FileLocalNoteStore{files: files}, nil
}

func (s *FileLocalNoteStore) load() error {
	if s.loaded {
		return nil
	}
	s.notes = make(map[string]models.LocalNote)
	raw, err := s.files.Read(localNotesFile)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.loaded = true
			return nil
		}
		return err
	}
	var doc localNotesDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode local notes: %w", err)
	}
	for _, n := range doc.Notes {
		s.notes[n.ID] = n
	}
	s.loaded = true
	return nil
}

func (s *FileLocalNoteStore) flush(next map[string]models.LocalNote) error {
	doc := localNotesDocument{Version: 1, Notes: filterLocalNotes(next, func(models.LocalNote) bool { return true })}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local notes: %w", err)
	}
	if err := s.files.WriteAtomic(localNotesFile, raw); err != nil {
		return err
	}
	s.notes = next
	return nil
}

// Get returns a copy of the note or ErrLocalNoteNotFound.
func (s *FileLocalNoteStore) Get(ctx context.Context, id string) (*models.LocalNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	note, ok := s.notes[id]
	if !ok {
		return nil, ErrLocalNoteNotFound
	}
	out := cloneLocalNote(note)
	return &out, nil
}

// ListByAccount returns the account's notes, most recently updated first.
func (s *FileLocalNoteStore) ListByAccount(ctx context.Context, accountID string) ([]models.LocalNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	return filterLocalNotes(s.notes, func(n models.LocalNote) bool { return n.BelongsTo(accountID) }), nil
}

// ListUnsynced returns the account's notes awaiting a push.
func (s *FileLocalNoteStore) ListUnsynced(ctx context.Context, accountID string) ([]models.LocalNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	return filterLocalNotes(s.notes, func(n models.LocalNote) bool { return n.BelongsTo(accountID) && !n.IsSynced }), nil
}

// Save inserts or replaces one note.
func (s *FileLocalNoteStore) Save(ctx context.Context, note models.LocalNote) error {
	return s.SaveAll(ctx, []models.LocalNote{note})
}

// SaveAll writes every note in a single file replacement. Either all notes
// are persisted or none are.
func (s *FileLocalNoteStore) SaveAll(ctx context.Context, notes []models.LocalNote) error {
	if err := validateLocalNotes(notes); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	next := make(map[string]models.LocalNote, len(s.notes)+len(notes))
	for id, n := range s.notes {
		next[id] = n
	}
	for _, n := range notes {
		next[n.ID] = cloneLocalNote(n)
	}
	return s.flush(next)
}

// Delete removes a note if present.
func (s *FileLocalNoteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	if _, ok := s.notes[id]; !ok {
		return nil
	}
	next := make(map[string]models.LocalNote, len(s.notes))
	for k, n := range s.notes {
		if k != id {
			next[k] = n
		}
	}
	return s.flush(next)
}

func validateLocalNotes(notes []models.LocalNote) error {
	for _, n := range notes {
		if n.ID == "" {
			return fmt.Errorf("local note without id")
		}
	}
	return nil
}

func filterLocalNotes(all map[string]models.LocalNote, keep func(models.LocalNote) bool) []models.LocalNote {
	out := make([]models.LocalNote, 0, len(all))
	for _, n := range all {
		if keep(n) {
			out = append(out, cloneLocalNote(n))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func cloneLocalNote(n models.LocalNote) models.LocalNote {
	out := n
	if n.Content != nil {
		out.Content = append([]byte(nil), n.Content...)
	}
	if n.AccountID != nil {
		v := *n.AccountID
		out.AccountID = &v
	}
	if n.RemoteID != nil {
		v := *n.RemoteID
		out.RemoteID = &v
	}
	return out
}
