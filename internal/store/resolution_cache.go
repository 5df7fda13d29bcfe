package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("resolution cache miss")

// ResolutionCache is a short-TTL map from a normalized phone (optionally
// scoped to a business) to the customer id it last resolved to. Purely an
// accelerator: the resolver treats any cache error as a miss, and linking or
// phone changes invalidate the affected keys.
type ResolutionCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewResolutionCache(rdb *redis.Client, ttl time.Duration) *ResolutionCache {
	return &ResolutionCache{rdb: rdb, ttl: ttl}
}

func (s *ResolutionCache) key(businessID *uuid.UUID, normalized string) string {
	scope := "global"
	if businessID != nil {
		scope = businessID.String()
	}
	return "resolve:" + scope + ":" + normalized
}

func (s *ResolutionCache) Get(ctx context.Context, businessID *uuid.UUID, normalized string) (uuid.UUID, error) {
	val, err := s.rdb.Get(ctx, s.key(businessID, normalized)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrCacheMiss
		}
		return uuid.Nil, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, ErrCacheMiss
	}
	return id, nil
}

func (s *ResolutionCache) Set(ctx context.Context, businessID *uuid.UUID, normalized string, customerID uuid.UUID) error {
	return s.rdb.Set(ctx, s.key(businessID, normalized), customerID.String(), s.ttl).Err()
}

func (s *ResolutionCache) Invalidate(ctx context.Context, businessID *uuid.UUID, normalized string) error {
	return s.rdb.Del(ctx, s.key(businessID, normalized)).Err()
}
