package roblox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/models"
)

type stubProfiles struct {
	profile models.UserProfile
	err     error
	calls   int
}

func (s *stubProfiles) UserProfile(context.Context, credential.Credential, int64) (models.UserProfile, error) {
	s.calls++
	if s.err != nil {
		return models.UserProfile{}, s.err
	}
	return s.profile, nil
}

func TestProfileCacheHit(t *testing.T) {
	base := &stubProfiles{profile: models.UserProfile{ID: 42, Name: "newbie"}}
	cache := NewProfileCache(base, time.Minute)
	ctx := context.Background()

	profile, err := cache.UserProfile(ctx, credential.Credential{}, 42)
	gt.NoError(t, err).Required()
	gt.Equal(t, profile.Name, "newbie")

	_, err = cache.UserProfile(ctx, credential.Credential{}, 42)
	gt.NoError(t, err).Required()
	gt.Equal(t, base.calls, 1)
}

func TestProfileCacheSkipsFailures(t *testing.T) {
	base := &stubProfiles{err: errors.New("upstream down")}
	cache := NewProfileCache(base, time.Minute)

	_, err := cache.UserProfile(context.Background(), credential.Credential{}, 42)
	gt.Error(t, err)
	_, err = cache.UserProfile(context.Background(), credential.Credential{}, 42)
	gt.Error(t, err)

	gt.Equal(t, base.calls, 2)
	gt.Equal(t, cache.Len(), 0)
}

func TestProfileCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	base := &stubProfiles{profile: models.UserProfile{ID: 42}}
	cache := NewProfileCache(base, time.Minute)
	cache.now = func() time.Time { return now }

	_, err := cache.UserProfile(context.Background(), credential.Credential{}, 42)
	gt.NoError(t, err).Required()

	now = now.Add(2 * time.Minute)
	_, err = cache.UserProfile(context.Background(), credential.Credential{}, 42)
	gt.NoError(t, err).Required()

	gt.Equal(t, base.calls, 2)
	gt.Equal(t, cache.Len(), 1)
}

func TestProfileCacheDefaultTTL(t *testing.T) {
	cache := NewProfileCache(&stubProfiles{}, 0)
	gt.Equal(t, cache.ttl, DefaultProfileCacheTTL)
}
