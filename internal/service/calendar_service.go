package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noah-isme/unforgotten-api/internal/models"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
)

// Source labels used in logs, metrics and CalendarSnapshot.DegradedSources.
const (
	SourceProfiles     = "profiles"
	SourceMembers      = "members"
	SourceShares       = "shares"
	SourceShareMembers = "share_members"
)

type profileLister interface {
	ListByAccount(ctx context.Context, accountID string) ([]models.Profile, error)
}

type memberLister interface {
	ListWithUsers(ctx context.Context, accountID string) ([]models.AccountMember, error)
}

type appointmentSource interface {
	ListByAccount(ctx context.Context, accountID string) ([]models.Appointment, error)
	ListSharedWithUser(ctx context.Context, userID string) ([]models.Appointment, error)
}

type countdownSource interface {
	ListByAccount(ctx context.Context, accountID string) ([]models.Countdown, error)
	ListSharedWithUser(ctx context.Context, userID string) ([]models.Countdown, error)
}

type medicationSource interface {
	ListByAccount(ctx context.Context, accountID string) ([]models.Medication, error)
	ListSchedules(ctx context.Context, medicationID string) ([]models.MedicationSchedule, error)
}

type todoListSource interface {
	ListWithDueDate(ctx context.Context, accountID string) ([]models.TodoList, error)
}

type shareReader interface {
	SharedEventIDs(ctx context.Context, accountID, userID string) (models.SharedEventIDs, error)
	ListByAccount(ctx context.Context, accountID string) ([]models.FamilyCalendarShare, error)
	ListVisibleToUser(ctx context.Context, userID string) ([]models.FamilyCalendarShare, error)
	ListMembers(ctx context.Context, shareID string) ([]string, error)
}

// LoadRequest selects whose calendar to aggregate.
type LoadRequest struct {
	AccountID string
	UserID    string
	// CrossAccount includes every share visible to UserID, not only the account's own.
	CrossAccount bool
}

// CalendarSnapshot is the outcome of one aggregation load. Events are kept
// in typed slices so the snapshot round-trips through the JSON cache.
type CalendarSnapshot struct {
	AccountID            string                       `json:"account_id"`
	UserID               string                       `json:"user_id"`
	CrossAccount         bool                         `json:"cross_account"`
	LoadedAt             time.Time                    `json:"loaded_at"`
	Profiles             []models.Profile             `json:"profiles"`
	Members              []models.AccountMember       `json:"members"`
	Shares               []models.FamilyCalendarShare `json:"shares"`
	ShareMembers         map[string][]string          `json:"share_members"`
	Appointments         []models.AppointmentEvent    `json:"appointments"`
	Countdowns           []models.CountdownEvent      `json:"countdowns"`
	Birthdays            []models.BirthdayEvent       `json:"birthdays"`
	Medications          []models.MedicationEvent     `json:"medications"`
	TodoLists            []models.TodoListEvent       `json:"todo_lists"`
	CustomCountdownNames []string                     `json:"custom_countdown_names"`
	DegradedSources      []string                     `json:"degraded_sources,omitempty"`
	LoadError            string                       `json:"load_error,omitempty"`
}

// Events concatenates every source in category order.
func (s *CalendarSnapshot) Events() []models.CalendarEvent {
	if s == nil {
		return nil
	}
	out := make([]models.CalendarEvent, 0, len(s.Appointments)+len(s.Countdowns)+len(s.Birthdays)+len(s.Medications)+len(s.TodoLists))
	for _, ev := range s.Appointments {
		out = append(out, ev)
	}
	for _, ev := range s.Countdowns {
		out = append(out, ev)
	}
	for _, ev := range s.Birthdays {
		out = append(out, ev)
	}
	for _, ev := range s.Medications {
		out = append(out, ev)
	}
	for _, ev := range s.TodoLists {
		out = append(out, ev)
	}
	return out
}

// Degraded reports whether any source or foundational read failed.
func (s *CalendarSnapshot) Degraded() bool {
	return s != nil && (len(s.DegradedSources) > 0 || s.LoadError != "")
}

func (s *CalendarSnapshot) markDegraded(source string) {
	for _, existing := range s.DegradedSources {
		if existing == source {
			return
		}
	}
	s.DegradedSources = append(s.DegradedSources, source)
}

// CalendarServiceConfig tunes aggregation.
type CalendarServiceConfig struct {
	Location              *time.Location
	MedicationHorizonDays int
	MaxShareFetchers      int
	CacheTTL              time.Duration
}

// CalendarServiceParams groups constructor dependencies.
type CalendarServiceParams struct {
	Profiles     profileLister
	Members      memberLister
	Appointments appointmentSource
	Countdowns   countdownSource
	Medications  medicationSource
	TodoLists    todoListSource
	Shares       shareReader
	Cache        *CacheService
	Metrics      *MetricsService
	Logger       *zap.Logger
	Config       CalendarServiceConfig
	Now          func() time.Time
}

// CalendarService aggregates the calendar sources of an account into one snapshot.
type CalendarService struct {
	profiles     profileLister
	members      memberLister
	appointments appointmentSource
	countdowns   countdownSource
	medications  medicationSource
	todoLists    todoListSource
	shares       shareReader
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          CalendarServiceConfig
	now          func() time.Time
}

// NewCalendarService constructs a CalendarService with sane defaults.
func NewCalendarService(params CalendarServiceParams) *CalendarService {
	cfg := params.Config
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MedicationHorizonDays <= 0 {
		cfg.MedicationHorizonDays = DefaultMedicationHorizonDays
	}
	if cfg.MaxShareFetchers <= 0 {
		cfg.MaxShareFetchers = 4
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &CalendarService{
		profiles:     params.Profiles,
		members:      params.Members,
		appointments: params.Appointments,
		countdowns:   params.Countdowns,
		medications:  params.Medications,
		todoLists:    params.TodoLists,
		shares:       params.Shares,
		cache:        params.Cache,
		metrics:      params.Metrics,
		logger:       logger,
		cfg:          cfg,
		now:          now,
	}
}

// Location is the zone events are bucketed in.
func (s *CalendarService) Location() *time.Location {
	return s.cfg.Location
}

// Now returns the service clock in the calendar location.
func (s *CalendarService) Now() time.Time {
	return s.now().In(s.cfg.Location)
}

// CalendarCacheKey names the cached snapshot of one load.
func CalendarCacheKey(req LoadRequest, day time.Time) string {
	return fmt.Sprintf("calendar:%s:%s:%t:%s", req.AccountID, req.UserID, req.CrossAccount, day.Format("2006-01-02"))
}

// CalendarCachePattern matches every cached snapshot of an account.
func CalendarCachePattern(accountID string) string {
	return fmt.Sprintf("calendar:%s:*", accountID)
}

// Load aggregates the account's calendar. Individual source failures are
// logged and degrade that source to zero events; failures of profiles or
// members set LoadError. Only context cancellation is returned as an error.
func (s *CalendarService) Load(ctx context.Context, req LoadRequest) (*CalendarSnapshot, error) {
	if req.AccountID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "account id is required")
	}

	started := time.Now()
	now := s.Now()
	today := models.StartOfDay(now)
	key := CalendarCacheKey(req, today)

	if s.cache.Enabled() {
		var cached CalendarSnapshot
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	snap := &CalendarSnapshot{
		AccountID:    req.AccountID,
		UserID:       req.UserID,
		CrossAccount: req.CrossAccount,
		LoadedAt:     now,
		ShareMembers: map[string][]string{},
	}
	log := s.logger.With(zap.String("account_id", req.AccountID), zap.Bool("cross_account", req.CrossAccount))

	// profiles and the member roster underpin every filter
	var (
		members               []models.AccountMember
		profileErr, memberErr error
	)
	wg := conc.NewWaitGroup()
	wg.Go(func() {
		profileErr = catchPanic(func() (err error) {
			snap.Profiles, err = s.profiles.ListByAccount(ctx, req.AccountID)
			return err
		})
	})
	wg.Go(func() {
		memberErr = catchPanic(func() (err error) {
			members, err = s.members.ListWithUsers(ctx, req.AccountID)
			return err
		})
	})
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if profileErr != nil {
		s.sourceFailed(log, snap, SourceProfiles, profileErr)
		snap.Profiles = nil
	}
	if memberErr != nil {
		s.sourceFailed(log, snap, SourceMembers, memberErr)
		members = nil
	}
	if profileErr != nil || memberErr != nil {
		snap.LoadError = "family members could not be loaded"
	}

	shared := s.loadShares(ctx, log, req, snap)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap.Members = reconcileRoster(req.AccountID, members, snap.Profiles)

	s.loadSources(ctx, log, req, snap, shared, today)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap.CustomCountdownNames = customCountdownNames(snap.Countdowns)
	sort.Strings(snap.DegradedSources)

	s.metrics.ObserveCalendarLoad(time.Since(started), snap.Degraded())
	if !snap.Degraded() && s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, snap, s.cfg.CacheTTL)
	}
	return snap, nil
}

// loadShares fetches shared event IDs, share records and share members.
// Every failure here is contained and degrades to empty data.
func (s *CalendarService) loadShares(ctx context.Context, log *zap.Logger, req LoadRequest, snap *CalendarSnapshot) models.SharedEventIDs {
	shared := models.NewSharedEventIDs()
	var (
		ids             models.SharedEventIDs
		shares          []models.FamilyCalendarShare
		idsErr, listErr error
	)

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		idsErr = catchPanic(func() (err error) {
			ids, err = s.shares.SharedEventIDs(ctx, req.AccountID, req.UserID)
			return err
		})
	})
	wg.Go(func() {
		listErr = catchPanic(func() (err error) {
			if req.CrossAccount && req.UserID != "" {
				shares, err = s.shares.ListVisibleToUser(ctx, req.UserID)
			} else {
				shares, err = s.shares.ListByAccount(ctx, req.AccountID)
			}
			return err
		})
	})
	wg.Wait()
	if ctx.Err() != nil {
		return shared
	}

	if idsErr != nil {
		s.sourceFailed(log, snap, SourceShares, idsErr)
	} else {
		shared = ids
	}
	if listErr != nil {
		s.sourceFailed(log, snap, SourceShares, listErr)
		shares = nil
	}
	snap.Shares = shares

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.cfg.MaxShareFetchers)
	for _, share := range shares {
		share := share
		p.Go(func() {
			var memberIDs []string
			err := catchPanic(func() (err error) {
				memberIDs, err = s.shares.ListMembers(ctx, share.ID)
				return err
			})
			if err != nil {
				memberIDs = []string{}
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil && ctx.Err() == nil {
				s.sourceFailed(log.With(zap.String("share_id", share.ID)), snap, SourceShareMembers, err)
			}
			snap.ShareMembers[share.ID] = memberIDs
		})
	}
	p.Wait()
	return shared
}

// loadSources runs the five event sources concurrently.
func (s *CalendarService) loadSources(ctx context.Context, log *zap.Logger, req LoadRequest, snap *CalendarSnapshot, shared models.SharedEventIDs, today time.Time) {
	loc := s.cfg.Location
	errs := make(map[models.CalendarFilterType]error, len(models.AllFilterTypes))
	var (
		mu      sync.Mutex
		partial error
	)
	record := func(source models.CalendarFilterType, err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs[source] = err
		mu.Unlock()
	}

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		record(models.FilterAppointments, catchPanic(func() error {
			own, err := s.appointments.ListByAccount(ctx, req.AccountID)
			if err != nil {
				return err
			}
			var sharedWithMe []models.Appointment
			if req.UserID != "" {
				if sharedWithMe, err = s.appointments.ListSharedWithUser(ctx, req.UserID); err != nil {
					log.Warn("shared appointments unavailable", zap.Error(err))
					sharedWithMe = nil
				}
			}
			snap.Appointments = appointmentEvents(mergeAppointments(own, sharedWithMe), shared, loc)
			return nil
		}))
	})
	wg.Go(func() {
		record(models.FilterCountdowns, catchPanic(func() error {
			own, err := s.countdowns.ListByAccount(ctx, req.AccountID)
			if err != nil {
				return err
			}
			var sharedWithMe []models.Countdown
			if req.UserID != "" {
				if sharedWithMe, err = s.countdowns.ListSharedWithUser(ctx, req.UserID); err != nil {
					log.Warn("shared countdowns unavailable", zap.Error(err))
					sharedWithMe = nil
				}
			}
			snap.Countdowns = countdownEvents(mergeCountdowns(own, sharedWithMe), shared, loc)
			return nil
		}))
	})
	wg.Go(func() {
		record(models.FilterBirthdays, catchPanic(func() error {
			snap.Birthdays = birthdayEvents(snap.Profiles, today)
			return nil
		}))
	})
	wg.Go(func() {
		record(models.FilterMedications, catchPanic(func() error {
			events, skipped, err := s.loadMedications(ctx, req.AccountID, today)
			if err != nil {
				return err
			}
			snap.Medications = events
			mu.Lock()
			partial = skipped
			mu.Unlock()
			return nil
		}))
	})
	wg.Go(func() {
		record(models.FilterTodoLists, catchPanic(func() error {
			lists, err := s.todoLists.ListWithDueDate(ctx, req.AccountID)
			if err != nil {
				return err
			}
			snap.TodoLists = todoListEvents(lists, loc)
			return nil
		}))
	})
	wg.Wait()

	if ctx.Err() != nil {
		return
	}
	for _, source := range models.AllFilterTypes {
		if err, failed := errs[source]; failed {
			s.sourceFailed(log, snap, string(source), err)
			s.clearSource(snap, source)
		}
	}
	if partial != nil && errs[models.FilterMedications] == nil {
		// the remaining medications are still shown
		s.sourceFailed(log, snap, string(models.FilterMedications), partial)
	}
}

// loadMedications expands every non-paused medication. Medications whose
// schedules cannot be read or evaluated are skipped and returned combined in
// skipped.
func (s *CalendarService) loadMedications(ctx context.Context, accountID string, today time.Time) (events []models.MedicationEvent, skipped error, err error) {
	meds, err := s.medications.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	for _, med := range meds {
		if med.IsPaused {
			continue
		}
		schedules, err := s.medications.ListSchedules(ctx, med.ID)
		if err != nil {
			skipped = multierr.Append(skipped, fmt.Errorf("medication %s: %w", med.ID, err))
			continue
		}
		expanded, err := medicationEvents(med, schedules, today, s.cfg.MedicationHorizonDays)
		if err != nil {
			skipped = multierr.Append(skipped, err)
			continue
		}
		events = append(events, expanded...)
	}
	return events, skipped, nil
}

func (s *CalendarService) clearSource(snap *CalendarSnapshot, source models.CalendarFilterType) {
	switch source {
	case models.FilterAppointments:
		snap.Appointments = nil
	case models.FilterCountdowns:
		snap.Countdowns = nil
	case models.FilterBirthdays:
		snap.Birthdays = nil
	case models.FilterMedications:
		snap.Medications = nil
	case models.FilterTodoLists:
		snap.TodoLists = nil
	}
}

func (s *CalendarService) sourceFailed(log *zap.Logger, snap *CalendarSnapshot, source string, err error) {
	log.Warn("calendar source failed", zap.String("source", source), zap.Error(err))
	s.metrics.RecordSourceFailure(source)
	snap.markDegraded(source)
}

// catchPanic runs fn and converts a panic into an error.
func catchPanic(fn func() error) (err error) {
	var catcher panics.Catcher
	catcher.Try(func() { err = fn() })
	if recovered := catcher.Recovered(); recovered != nil {
		return recovered.AsError()
	}
	return err
}
