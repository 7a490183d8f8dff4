package roblox

import (
	"context"
	"sync"
	"time"

	"github.com/friendfilter/backend/internal/credential"
	"github.com/friendfilter/backend/internal/models"
)

// DefaultProfileCacheTTL is how long a fetched profile is reused.
const DefaultProfileCacheTTL = 10 * time.Minute

// ProfileSource fetches public user profiles.
type ProfileSource interface {
	UserProfile(ctx context.Context, cred credential.Credential, userID int64) (models.UserProfile, error)
}

type profileEntry struct {
	profile models.UserProfile
	expires time.Time
}

// ProfileCache wraps a ProfileSource with a TTL-based in-memory cache. Only
// successful lookups are stored; profiles are public so entries are shared
// across credentials.
type ProfileCache struct {
	base ProfileSource
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	items map[int64]profileEntry
}

// NewProfileCache returns a cache holding profiles for ttl.
func NewProfileCache(base ProfileSource, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultProfileCacheTTL
	}
	return &ProfileCache{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[int64]profileEntry),
	}
}

// UserProfile returns a cached profile when fresh, otherwise it delegates to
// the underlying source and stores the result.
func (c *ProfileCache) UserProfile(ctx context.Context, cred credential.Credential, userID int64) (models.UserProfile, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[userID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.profile, nil
	}

	profile, err := c.base.UserProfile(ctx, cred, userID)
	if err != nil {
		return models.UserProfile{}, err
	}

	c.mu.Lock()
	c.items[userID] = profileEntry{profile: profile, expires: now.Add(c.ttl)}
	c.gcLocked(now)
	c.mu.Unlock()

	return profile, nil
}

// Len reports the number of stored entries, expired or not.
func (c *ProfileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *ProfileCache) gcLocked(now time.Time) {
	for id, entry := range c.items {
		if !now.Before(entry.expires) {
			delete(c.items, id)
		}
	}
}

// CachingClient is a Client whose profile lookups go through a ProfileCache.
// Repeated batch runs re-list requests that failed earlier; their profiles
// are served from memory.
type CachingClient struct {
	*Client
	profiles *ProfileCache
}

// NewCachingClient wraps client with a profile cache of the given ttl.
func NewCachingClient(client *Client, ttl time.Duration) *CachingClient {
	return &CachingClient{Client: client, profiles: NewProfileCache(client, ttl)}
}

// UserProfile fetches the profile of userID through the cache.
func (c *CachingClient) UserProfile(ctx context.Context, cred credential.Credential, userID int64) (models.UserProfile, error) {
	return c.profiles.UserProfile(ctx, cred, userID)
}
