package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ims-service/internal/domain"
)

const roleCacheKey = "ims:roles:all"

// RoleCache stores the full role listing. Roles are immutable so no invalidation is needed.
type RoleCache interface {
	GetRoles(ctx context.Context) ([]domain.Role, bool, error)
	SetRoles(ctx context.Context, roles []domain.Role) error
}

type redisRoleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRoleCache returns a Redis-backed role cache.
func NewRedisRoleCache(client *redis.Client, ttl time.Duration) RoleCache {
	return &redisRoleCache{client: client, ttl: ttl}
}

func (c *redisRoleCache) GetRoles(ctx context.Context) ([]domain.Role, bool, error) {
	raw, err := c.client.Get(ctx, roleCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var roles []domain.Role
	if err := json.Unmarshal(raw, &roles); err != nil {
		return nil, false, err
	}
	return roles, true, nil
}

func (c *redisRoleCache) SetRoles(ctx context.Context, roles []domain.Role) error {
	raw, err := json.Marshal(roles)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, roleCacheKey, raw, c.ttl).Err()
}
