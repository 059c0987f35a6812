package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/unforgotten-api/internal/models"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
)

type shareWriter interface {
	Save(ctx context.Context, share *models.FamilyCalendarShare, memberIDs []string) error
	Delete(ctx context.Context, accountID, shareID string) (bool, error)
}

type eventOwnership interface {
	ExistsInAccount(ctx context.Context, accountID, id string) (bool, error)
}

// ShareServiceParams groups constructor dependencies.
type ShareServiceParams struct {
	Shares       shareWriter
	Appointments eventOwnership
	Countdowns   eventOwnership
	Validator    *validator.Validate
	Cache        *CacheService
	Logger       *zap.Logger
	Now          func() time.Time
}

// ShareService creates and removes family calendar shares.
type ShareService struct {
	shares       shareWriter
	appointments eventOwnership
	countdowns   eventOwnership
	validator    *validator.Validate
	cache        *CacheService
	logger       *zap.Logger
	now          func() time.Time
}

// NewShareService constructs the service.
func NewShareService(params ShareServiceParams) *ShareService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &ShareService{
		shares:       params.Shares,
		appointments: params.Appointments,
		countdowns:   params.Countdowns,
		validator:    validate,
		cache:        params.Cache,
		logger:       logger,
		now:          now,
	}
}

// Share makes an appointment or countdown of accountID visible to the
// requested members. Sharing an already shared event replaces its member set.
func (s *ShareService) Share(ctx context.Context, accountID, userID string, req models.ShareRequest) (*models.FamilyCalendarShare, []string, error) {
	if userID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing user")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share payload")
	}

	owner := s.appointments
	if req.EventType == models.ShareEventCountdown {
		owner = s.countdowns
	}
	exists, err := owner.ExistsInAccount(ctx, accountID, req.EventID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if !exists {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, string(req.EventType)+" not found")
	}

	members := normalizeMembers(req.MemberUserIDs, userID)
	share := &models.FamilyCalendarShare{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		EventID:        req.EventID,
		EventType:      req.EventType,
		SharedByUserID: userID,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.shares.Save(ctx, share, members); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save share")
	}

	s.invalidate(ctx, accountID)
	s.logger.Info("calendar event shared",
		zap.String("account_id", accountID),
		zap.String("share_id", share.ID),
		zap.String("event_type", string(share.EventType)),
		zap.Int("members", len(members)))
	return share, members, nil
}

// Unshare removes a share of accountID.
func (s *ShareService) Unshare(ctx context.Context, accountID, shareID string) error {
	if shareID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "share id is required")
	}
	deleted, err := s.shares.Delete(ctx, accountID, shareID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete share")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "share not found")
	}
	s.invalidate(ctx, accountID)
	return nil
}

func (s *ShareService) invalidate(ctx context.Context, accountID string) {
	if err := s.cache.Invalidate(ctx, CalendarCachePattern(accountID)); err != nil {
		s.logger.Warn("calendar cache invalidation failed", zap.String("account_id", accountID), zap.Error(err))
	}
}

// normalizeMembers drops blanks, duplicates and the sharer, who always sees
// the share.
func normalizeMembers(ids []string, sharer string) []string {
	seen := map[string]bool{sharer: true}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
