package cache

import (
	"context"
	"log/slog"
	"time"

	"soulmine-bot/internal/repo"
)

// DefaultUserTTL is how long a user mirror stays cached.
const DefaultUserTTL = time.Hour

// Store is the subset of Redis used by UserCache.
type Store interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// UserCache mirrors user rows under user:{internal_id}. Every method is best
// effort: failures are logged and reported as a miss.
type UserCache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewUserCache builds a UserCache. A nil store yields a cache that always misses.
func NewUserCache(store Store, ttl time.Duration, logger *slog.Logger) *UserCache {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}
	return &UserCache{store: store, ttl: ttl, logger: logger.With("component", "user_cache")}
}

// UserKey returns the cache key for a user.
func UserKey(internalID string) string {
	return "user:" + internalID
}

// Set stores the user mirror.
func (c *UserCache) Set(ctx context.Context, u *repo.User) {
	if c == nil || c.store == nil || u == nil {
		return
	}
	if err := c.store.SetJSON(ctx, UserKey(u.ID), u, c.ttl); err != nil {
		c.logger.Warn("cache user failed", "user_id", u.ID, "error", err)
	}
}

// Get returns the cached user or nil.
func (c *UserCache) Get(ctx context.Context, internalID string) *repo.User {
	if c == nil || c.store == nil {
		return nil
	}
	var u repo.User
	ok, err := c.store.GetJSON(ctx, UserKey(internalID), &u)
	if err != nil {
		c.logger.Warn("read cached user failed", "user_id", internalID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &u
}

// Invalidate drops the user mirror.
func (c *UserCache) Invalidate(ctx context.Context, internalID string) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, UserKey(internalID)); err != nil {
		c.logger.Warn("invalidate cached user failed", "user_id", internalID, "error", err)
	}
}
