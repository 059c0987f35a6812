package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noah-isme/unforgotten-api/internal/models"
	"github.com/noah-isme/unforgotten-api/internal/repository"
	"github.com/noah-isme/unforgotten-api/pkg/config"
	"github.com/noah-isme/unforgotten-api/pkg/debounce"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
)

// serviceDebounceKey is the single timer key used with the service scope.
const serviceDebounceKey = "service"

// Session resolves the signed-in user. An empty ID means signed out.
type Session interface {
	UserID() string
}

// StaticSession is a Session bound to a fixed user.
type StaticSession string

// UserID implements Session.
func (s StaticSession) UserID() string { return string(s) }

type localNoteStore interface {
	Get(ctx context.Context, id string) (*models.LocalNote, error)
	ListUnsynced(ctx context.Context, accountID string) ([]models.LocalNote, error)
	SaveAll(ctx context.Context, notes []models.LocalNote) error
}

// SyncState is the phase of the reconciler.
type SyncState string

const (
	SyncIdle      SyncState = "idle"
	SyncSyncing   SyncState = "syncing"
	SyncCompleted SyncState = "completed"
	SyncFailed    SyncState = "failed"
)

// SyncStatus is an observable snapshot of the reconciler.
type SyncStatus struct {
	State       SyncState `json:"state"`
	Progress    float64   `json:"progress"`
	SyncedCount int       `json:"synced_count"`
	Err         error     `json:"-"`
}

// BatchResult summarises SyncPendingNotes.
type BatchResult struct {
	Attempted int
	Synced    int
	Failures  map[string]error
	Err       error
}

// MergeResult counts what a merge changed locally.
type MergeResult struct {
	Inserted int
	Updated  int
	Linked   int
	Skipped  int
}

// Changed reports whether the merge wrote anything.
func (r MergeResult) Changed() int {
	return r.Inserted + r.Updated + r.Linked
}

// NoteSyncConfig tunes the reconciler.
type NoteSyncConfig struct {
	DebounceWindow      time.Duration
	DebounceScope       string
	CompletedResetDelay time.Duration
}

// NoteSyncParams groups constructor dependencies.
type NoteSyncParams struct {
	Remote         remoteNoteStore
	Local          localNoteStore
	Session        Session
	Metrics        *MetricsService
	Logger         *zap.Logger
	Config         NoteSyncConfig
	Now            func() time.Time
	OnStatusChange func(SyncStatus)
}

type pushRequest struct {
	noteID   string
	remoteID *string
	write    models.NoteWrite
}

// NoteSyncService pushes local notes to the hosted store and merges remote
// changes back with last-writer-wins on UpdatedAt.
type NoteSyncService struct {
	remote   remoteNoteStore
	local    localNoteStore
	session  Session
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      NoteSyncConfig
	now      func() time.Time
	onStatus func(SyncStatus)

	debouncer *debounce.Debouncer
	ctx       context.Context
	cancel    context.CancelFunc

	mu         sync.Mutex
	status     SyncStatus
	resetTimer *time.Timer
	resetGen   uint64
}

// NewNoteSyncService constructs the reconciler. Close releases its timers.
func NewNoteSyncService(params NoteSyncParams) *NoteSyncService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	cfg := params.Config
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 1500 * time.Millisecond
	}
	if cfg.CompletedResetDelay <= 0 {
		cfg.CompletedResetDelay = 2 * time.Second
	}
	if cfg.DebounceScope != config.DebounceScopeService {
		cfg.DebounceScope = config.DebounceScopeNote
	}
	session := params.Session
	if session == nil {
		session = StaticSession("")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &NoteSyncService{
		remote:    params.Remote,
		local:     params.Local,
		session:   session,
		metrics:   params.Metrics,
		logger:    logger,
		cfg:       cfg,
		now:       now,
		onStatus:  params.OnStatusChange,
		debouncer: debounce.New(cfg.DebounceWindow),
		ctx:       ctx,
		cancel:    cancel,
		status:    SyncStatus{State: SyncIdle},
	}
}

// Status returns the current status.
func (s *NoteSyncService) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Close cancels pending pushes, the status reset and in-flight work.
func (s *NoteSyncService) Close() {
	s.debouncer.Stop()
	s.cancel()
	s.mu.Lock()
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.mu.Unlock()
}

// Sync schedules a debounced push of note. The note is captured now, so later
// mutations of the caller's copy do not leak into the push.
func (s *NoteSyncService) Sync(note models.LocalNote) error {
	req, err := s.capture(note, s.session.UserID())
	if err != nil {
		return err
	}
	key := s.debounceKey(note.ID)
	if !s.debouncer.Schedule(key, func() { _ = s.pushTracked(s.ctx, req) }) {
		return appErrors.Clone(appErrors.ErrServiceUnavailable, "note sync is closed")
	}
	return nil
}

// SyncImmediately pushes note now, dropping any pending debounced push for it.
func (s *NoteSyncService) SyncImmediately(ctx context.Context, note models.LocalNote) error {
	s.debouncer.Cancel(s.debounceKey(note.ID))
	req, err := s.capture(note, s.session.UserID())
	if err != nil {
		return err
	}
	return s.pushTracked(ctx, req)
}

// SyncPendingNotes pushes every unsynced note in order. A failing note does
// not stop the batch; failures are combined into the result.
func (s *NoteSyncService) SyncPendingNotes(ctx context.Context, notes []models.LocalNote) (BatchResult, error) {
	userID := s.session.UserID()
	if userID == "" {
		return BatchResult{}, appErrors.ErrNotAuthenticated
	}

	pending := make([]models.LocalNote, 0, len(notes))
	for _, n := range notes {
		if !n.IsSynced {
			pending = append(pending, n)
		}
	}
	result := BatchResult{Attempted: len(pending), Failures: map[string]error{}}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	s.beginSync()

	for i, note := range pending {
		if err := ctx.Err(); err != nil {
			s.abandonSync()
			return result, err
		}
		err := s.pushNote(ctx, note, userID)
		switch {
		case err == nil:
			result.Synced++
		case ctx.Err() != nil:
			s.abandonSync()
			return result, ctx.Err()
		default:
			result.Failures[note.ID] = err
			result.Err = multierr.Append(result.Err, fmt.Errorf("note %s: %w", note.ID, err))
		}
		s.setProgress(float64(i+1) / float64(len(pending)))
	}

	s.metrics.RecordNoteSync(SyncOperationBatch, result.Err)
	if result.Err != nil {
		s.logger.Warn("note batch sync finished with failures",
			zap.Int("attempted", result.Attempted),
			zap.Int("synced", result.Synced),
			zap.Error(result.Err))
		s.fail(result.Err)
		return result, result.Err
	}
	s.complete(result.Synced)
	return result, nil
}

// FetchRemoteChanges lists live remote notes of accountID, newest first.
// A non-nil since restricts the result to rows updated after it.
func (s *NoteSyncService) FetchRemoteChanges(ctx context.Context, accountID string, since *time.Time) ([]models.RemoteNote, error) {
	if accountID == "" {
		return nil, appErrors.ErrMissingAccountID
	}
	notes, err := s.remote.ListSince(ctx, accountID, since)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.metrics.RecordNoteSync(SyncOperationFetch, err)
		return nil, err
	}
	s.metrics.RecordNoteSync(SyncOperationFetch, nil)
	return notes, nil
}

// MergeRemoteNotes applies remote rows to the local store. A remote row wins
// only when strictly newer; an equal timestamp links the sync identity. All
// changes are saved together.
func (s *NoteSyncService) MergeRemoteNotes(ctx context.Context, remotes []models.RemoteNote) (MergeResult, error) {
	var result MergeResult
	changed := make(map[string]models.LocalNote)
	order := make([]string, 0, len(remotes))

	for _, remote := range remotes {
		if remote.IsDeleted() {
			result.Skipped++
			continue
		}
		local, found, err := s.lookupLocal(ctx, changed, remote.LocalID)
		if err != nil {
			s.metrics.RecordNoteSync(SyncOperationMerge, err)
			return MergeResult{}, err
		}

		var next models.LocalNote
		switch {
		case !found:
			next = materialize(remote)
			result.Inserted++
		case remote.UpdatedAt.After(local.UpdatedAt):
			next = overwrite(local, remote)
			result.Updated++
		case remote.UpdatedAt.Equal(local.UpdatedAt) && !linkedTo(local, remote.RemoteID):
			next = local
			next.RemoteID = stringPtr(remote.RemoteID)
			next.IsSynced = true
			result.Linked++
		default:
			result.Skipped++
			continue
		}
		if _, seen := changed[next.ID]; !seen {
			order = append(order, next.ID)
		}
		changed[next.ID] = next
	}

	if len(order) == 0 {
		s.metrics.RecordNoteSync(SyncOperationMerge, nil)
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return MergeResult{}, err
	}
	batch := make([]models.LocalNote, 0, len(order))
	for _, id := range order {
		batch = append(batch, changed[id])
	}
	if err := s.local.SaveAll(ctx, batch); err != nil {
		s.metrics.RecordNoteSync(SyncOperationMerge, err)
		return MergeResult{}, fmt.Errorf("save merged notes: %w", err)
	}
	s.metrics.RecordNoteSync(SyncOperationMerge, nil)
	s.logger.Debug("remote notes merged",
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("linked", result.Linked))
	return result, nil
}

// Refresh pulls every live remote note of the account and merges it. The
// pull is not narrowed by a client-side watermark because updated_at values
// come from devices and can arrive out of order.
func (s *NoteSyncService) Refresh(ctx context.Context, accountID string) (MergeResult, error) {
	remotes, err := s.FetchRemoteChanges(ctx, accountID, nil)
	if err != nil {
		return MergeResult{}, err
	}
	return s.MergeRemoteNotes(ctx, remotes)
}

// SweepAccount pushes the account's unsynced notes then refreshes it.
func (s *NoteSyncService) SweepAccount(ctx context.Context, accountID string) error {
	pending, err := s.local.ListUnsynced(ctx, accountID)
	if err != nil {
		return fmt.Errorf("list unsynced notes: %w", err)
	}
	var errs error
	if len(pending) > 0 {
		if _, err := s.SyncPendingNotes(ctx, pending); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			errs = multierr.Append(errs, err)
		}
	}
	if _, err := s.Refresh(ctx, accountID); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// Create stores a new local note and schedules its push.
func (s *NoteSyncService) Create(ctx context.Context, accountID string, edit models.NoteEdit) (*models.LocalNote, error) {
	now := s.now().UTC()
	note := models.LocalNote{
		ID:        uuid.NewString(),
		Theme:     models.DefaultNoteTheme,
		CreatedAt: now,
	}
	if accountID != "" {
		note.AccountID = stringPtr(accountID)
	}
	note.Apply(edit, now)
	if err := s.local.SaveAll(ctx, []models.LocalNote{note}); err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	s.syncQuietly(note)
	return &note, nil
}

// Edit applies a local mutation and schedules a push.
func (s *NoteSyncService) Edit(ctx context.Context, id string, edit models.NoteEdit) (*models.LocalNote, error) {
	note, err := s.local.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	note.Apply(edit, s.now().UTC())
	if err := s.local.SaveAll(ctx, []models.LocalNote{*note}); err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	s.syncQuietly(*note)
	return note, nil
}

func (s *NoteSyncService) syncQuietly(note models.LocalNote) {
	if err := s.Sync(note); err != nil {
		// stays unsynced for the next sweep
		s.logger.Debug("note push not scheduled", zap.String("note_id", note.ID), zap.Error(err))
	}
}

func (s *NoteSyncService) debounceKey(noteID string) string {
	if s.cfg.DebounceScope == config.DebounceScopeService {
		return serviceDebounceKey
	}
	return noteID
}

func (s *NoteSyncService) capture(note models.LocalNote, userID string) (pushRequest, error) {
	if userID == "" {
		return pushRequest{}, appErrors.ErrNotAuthenticated
	}
	if note.AccountID == nil || *note.AccountID == "" {
		return pushRequest{}, appErrors.ErrMissingAccountID
	}
	req := pushRequest{
		noteID: note.ID,
		write: models.NoteWrite{
			AccountID:        *note.AccountID,
			UserID:           userID,
			LocalID:          note.ID,
			Title:            note.Title,
			Content:          append([]byte(nil), note.Content...),
			ContentPlainText: note.ContentPlainText,
			Theme:            note.Theme,
			IsPinned:         note.IsPinned,
			CreatedAt:        note.CreatedAt,
			UpdatedAt:        note.UpdatedAt,
		},
	}
	if note.RemoteID != nil && *note.RemoteID != "" {
		req.remoteID = stringPtr(*note.RemoteID)
	}
	return req, nil
}

func (s *NoteSyncService) pushNote(ctx context.Context, note models.LocalNote, userID string) error {
	req, err := s.capture(note, userID)
	if err != nil {
		return err
	}
	return s.push(ctx, req)
}

// pushTracked runs a single push with status transitions.
func (s *NoteSyncService) pushTracked(ctx context.Context, req pushRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.beginSync()
	err := s.push(ctx, req)
	switch {
	case err == nil:
		s.complete(1)
	case ctx.Err() != nil:
		s.abandonSync()
		return ctx.Err()
	default:
		s.logger.Warn("note push failed", zap.String("note_id", req.noteID), zap.Error(err))
		s.fail(err)
	}
	return err
}

func (s *NoteSyncService) push(ctx context.Context, req pushRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if req.remoteID != nil {
		_, err = s.remote.Update(ctx, *req.remoteID, req.write)
		if errors.Is(err, sql.ErrNoRows) {
			// remote row vanished; recreate it by local ID
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			_, err = s.remote.Insert(ctx, req.write)
		}
	} else {
		_, err = s.remote.Insert(ctx, req.write)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, repository.ErrNoteStale) {
		// a newer write from another device wins; the next merge pulls it
		s.logger.Debug("note push superseded by newer remote row", zap.String("note_id", req.noteID))
		err = nil
	}
	s.metrics.RecordNoteSync(SyncOperationPush, err)
	if err != nil {
		if errors.Is(err, repository.ErrNoteDeleted) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "note has been deleted remotely")
		}
		return err
	}
	return nil
}

func (s *NoteSyncService) lookupLocal(ctx context.Context, changed map[string]models.LocalNote, id string) (models.LocalNote, bool, error) {
	if n, ok := changed[id]; ok {
		return n, true, nil
	}
	note, err := s.local.Get(ctx, id)
	if errors.Is(err, repository.ErrLocalNoteNotFound) {
		return models.LocalNote{}, false, nil
	}
	if err != nil {
		return models.LocalNote{}, false, fmt.Errorf("load local note %s: %w", id, err)
	}
	return *note, true, nil
}

func materialize(remote models.RemoteNote) models.LocalNote {
	theme := remote.Theme
	if theme == "" {
		theme = models.DefaultNoteTheme
	}
	return models.LocalNote{
		ID:               remote.LocalID,
		AccountID:        stringPtr(remote.AccountID),
		Title:            remote.Title,
		Content:          append([]byte(nil), remote.Content...),
		ContentPlainText: remote.ContentPlainText,
		Theme:            theme,
		CreatedAt:        remote.CreatedAt,
		UpdatedAt:        remote.UpdatedAt,
		IsPinned:         remote.IsPinned,
		IsSynced:         true,
		RemoteID:         stringPtr(remote.RemoteID),
	}
}

func overwrite(local models.LocalNote, remote models.RemoteNote) models.LocalNote {
	next := materialize(remote)
	next.ID = local.ID
	next.CreatedAt = local.CreatedAt
	if local.AccountID != nil {
		next.AccountID = local.AccountID
	}
	return next
}

func linkedTo(n models.LocalNote, remoteID string) bool {
	return n.IsSynced && n.RemoteID != nil && *n.RemoteID == remoteID
}

func stringPtr(s string) *string {
	return &s
}

func (s *NoteSyncService) beginSync() {
	s.mu.Lock()
	s.stopResetLocked()
	s.status = SyncStatus{State: SyncSyncing}
	st := s.status
	s.mu.Unlock()
	s.notify(st)
}

func (s *NoteSyncService) setProgress(p float64) {
	s.mu.Lock()
	if s.status.State != SyncSyncing {
		s.mu.Unlock()
		return
	}
	s.status.Progress = p
	st := s.status
	s.mu.Unlock()
	s.notify(st)
}

// abandonSync returns to idle without reporting a failure.
func (s *NoteSyncService) abandonSync() {
	s.mu.Lock()
	s.status = SyncStatus{State: SyncIdle}
	st := s.status
	s.mu.Unlock()
	s.notify(st)
}

func (s *NoteSyncService) fail(err error) {
	s.mu.Lock()
	s.stopResetLocked()
	s.status = SyncStatus{State: SyncFailed, Err: err}
	st := s.status
	s.mu.Unlock()
	s.notify(st)
}

func (s *NoteSyncService) complete(count int) {
	s.mu.Lock()
	s.stopResetLocked()
	s.status = SyncStatus{State: SyncCompleted, Progress: 1, SyncedCount: count}
	s.resetGen++
	gen := s.resetGen
	s.resetTimer = time.AfterFunc(s.cfg.CompletedResetDelay, func() { s.resetToIdle(gen) })
	st := s.status
	s.mu.Unlock()
	s.notify(st)
}

func (s *NoteSyncService) resetToIdle(gen uint64) {
	s.mu.Lock()
	if gen != s.resetGen || s.status.State != SyncCompleted || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.resetTimer = nil
	s.status = SyncStatus{State: SyncIdle}
	st := s.status
	s.mu.Unlock()
	s.notify(st)
}

func (s *NoteSyncService) stopResetLocked() {
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.resetGen++
}

func (s *NoteSyncService) notify(st SyncStatus) {
	if s.onStatus != nil {
		s.onStatus(st)
	}
}
