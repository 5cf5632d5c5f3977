package sessioncache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis is a cluster-shared SessionCache backed by go-redis. Absence is
// never surfaced as an error: a missing key and a genuine connection
// hiccup are both reported as a cache miss, matching the port's
// contract that SessionCache lookups never fail the caller's request.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(addr, password string, db int) *Redis {
	return &Redis{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (r *Redis) key(entityID string) string {
	return fmt.Sprintf("mosapi:session:%s", entityID)
}

func (r *Redis) Get(ctx context.Context, entityID string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, r.key(entityID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, nil
	}
	if strings.TrimSpace(val) == "" {
		return "", false, nil
	}
	return val, true, nil
}

func (r *Redis) Put(ctx context.Context, entityID, cookie string) error {
	return r.rdb.Set(ctx, r.key(entityID), cookie, 0).Err()
}

func (r *Redis) Clear(ctx context.Context, entityID string) error {
	return r.rdb.Del(ctx, r.key(entityID)).Err()
}
