package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unforgotten-api/internal/models"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = raw
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key := range r.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(r.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (r *memoryCacheRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type shareWriterStub struct {
	saved   *models.FamilyCalendarShare
	members []string
	deleted bool
	err     error
}

func (s *shareWriterStub) Save(ctx context.Context, share *models.FamilyCalendarShare, memberIDs []string) error {
	if s.err != nil {
		return s.err
	}
	s.saved = share
	s.members = memberIDs
	return nil
}

func (s *shareWriterStub) Delete(ctx context.Context, accountID, shareID string) (bool, error) {
	return s.deleted, s.err
}

type ownershipStub map[string]bool

func (s ownershipStub) ExistsInAccount(ctx context.Context, accountID, id string) (bool, error) {
	return s[accountID+"/"+id], nil
}

func newShareServiceForTest(writer *shareWriterStub, repo *memoryCacheRepo) *ShareService {
	return NewShareService(ShareServiceParams{
		Shares:       writer,
		Appointments: ownershipStub{"acct/a1": true},
		Countdowns:   ownershipStub{"acct/c1": true},
		Cache:        NewCacheService(repo, nil, time.Minute, nil, true),
		Now:          fixedClock(),
	})
}

func TestShareServiceShareNormalizesMembersAndInvalidates(t *testing.T) {
	writer := &shareWriterStub{}
	repo := newMemoryCacheRepo()
	require.NoError(t, repo.Set(context.Background(), "calendar:acct:u1:false:2025-06-01", "x", time.Minute))
	require.NoError(t, repo.Set(context.Background(), "calendar:other:u1:false:2025-06-01", "x", time.Minute))
	svc := newShareServiceForTest(writer, repo)

	share, members, err := svc.Share(context.Background(), "acct", "u1", models.ShareRequest{
		EventID:       "c1",
		EventType:     models.ShareEventCountdown,
		MemberUserIDs: []string{"u2", "u1", "u2", "u3"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, members)
	assert.Equal(t, members, writer.members)
	assert.Equal(t, "u1", share.SharedByUserID)
	assert.Equal(t, "acct", share.AccountID)
	assert.NotEmpty(t, share.ID)
	assert.Equal(t, 1, repo.Len())
}

func TestShareServiceShareErrors(t *testing.T) {
	svc := newShareServiceForTest(&shareWriterStub{}, newMemoryCacheRepo())
	ctx := context.Background()

	_, _, err := svc.Share(ctx, "acct", "", models.ShareRequest{EventID: "a1", EventType: models.ShareEventAppointment})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Share(ctx, "acct", "u1", models.ShareRequest{EventID: "a1", EventType: "birthday"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Share(ctx, "acct", "u1", models.ShareRequest{EventID: "c1", EventType: models.ShareEventAppointment})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	failing := newShareServiceForTest(&shareWriterStub{err: errors.New("tx aborted")}, newMemoryCacheRepo())
	_, _, err = failing.Share(ctx, "acct", "u1", models.ShareRequest{EventID: "a1", EventType: models.ShareEventAppointment})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestShareServiceUnshare(t *testing.T) {
	ctx := context.Background()
	missing := newShareServiceForTest(&shareWriterStub{}, newMemoryCacheRepo())
	err := missing.Unshare(ctx, "acct", "sh1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	repo := newMemoryCacheRepo()
	require.NoError(t, repo.Set(ctx, "calendar:acct:u1:true:2025-06-01", "x", time.Minute))
	svc := newShareServiceForTest(&shareWriterStub{deleted: true}, repo)
	require.NoError(t, svc.Unshare(ctx, "acct", "sh1"))
	assert.Equal(t, 0, repo.Len())
}

func TestCalendarLoadUsesCacheWhenHealthy(t *testing.T) {
	repo := newMemoryCacheRepo()
	profiles := &countingProfiles{}
	svc := newCalendarServiceForTest(func(p *CalendarServiceParams) {
		p.Profiles = profiles
		p.Cache = NewCacheService(repo, nil, time.Minute, nil, true)
	})
	req := LoadRequest{AccountID: "acct", UserID: "u1"}

	first, err := svc.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Len())

	second, err := svc.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, profiles.calls)
	assert.Equal(t, len(first.Events()), len(second.Events()))
	assert.Equal(t, first.CustomCountdownNames, second.CustomCountdownNames)
}

type countingProfiles struct {
	calls int
}

func (c *countingProfiles) ListByAccount(ctx context.Context, accountID string) ([]models.Profile, error) {
	c.calls++
	return nil, nil
}
