package user

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CachedRepository wraps Repository with a Redis cache-aside layer for
// profile reads. The connection projection engine fetches one profile per
// result row, so these lookups dominate read traffic.
// With a nil Redis client every call passes straight through.
type CachedRepository struct {
	repo  *Repository
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedRepository creates caching wrapper around the user repository
func NewCachedRepository(repo *Repository, client *redis.Client, ttl time.Duration) *CachedRepository {
	return &CachedRepository{repo: repo, redis: client, ttl: ttl}
}

func idKey(id uuid.UUID) string      { return "user:id:" + id.String() }
func usernameKey(name string) string { return "user:name:" + name }

// GetByID returns a user by id, cache first
func (c *CachedRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if u := c.fromCache(ctx, idKey(id)); u != nil {
		return u, nil
	}

	u, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.toCache(ctx, u)
	return u, nil
}

// GetByUsername returns a user by username, cache first
func (c *CachedRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	if u := c.fromCache(ctx, usernameKey(username)); u != nil {
		return u, nil
	}

	u, err := c.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	c.toCache(ctx, u)
	return u, nil
}

// Update updates profile fields and drops cached entries
func (c *CachedRepository) Update(ctx context.Context, u *User) error {
	if err := c.repo.Update(ctx, u); err != nil {
		return err
	}
	c.invalidate(ctx, u)
	return nil
}

// UpdateAvatar sets the avatar URL and drops cached entries
func (c *CachedRepository) UpdateAvatar(ctx context.Context, u *User, avatarURL string) error {
	if err := c.repo.UpdateAvatar(ctx, u.ID, avatarURL); err != nil {
		return err
	}
	c.invalidate(ctx, u)
	return nil
}

func (c *CachedRepository) fromCache(ctx context.Context, key string) *User {
	if c.redis == nil {
		return nil
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("Profile cache read failed")
		}
		return nil
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil
	}
	return &u
}

func (c *CachedRepository) toCache(ctx context.Context, u *User) {
	if c.redis == nil || u == nil {
		return
	}
	// PasswordHash is excluded via its json:"-" tag
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	pipe := c.redis.Pipeline()
	pipe.Set(ctx, idKey(u.ID), data, c.ttl)
	pipe.Set(ctx, usernameKey(u.Username), data, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Str("username", u.Username).Msg("Profile cache write failed")
	}
}

func (c *CachedRepository) invalidate(ctx context.Context, u *User) {
	if c.redis == nil || u == nil {
		return
	}
	if err := c.redis.Del(ctx, idKey(u.ID), usernameKey(u.Username)).Err(); err != nil {
		log.Warn().Err(err).Str("username", u.Username).Msg("Profile cache invalidation failed")
	}
}
