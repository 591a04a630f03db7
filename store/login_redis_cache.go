package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const loginFailureTTL = 10 * time.Minute

type LoginRedisCache struct {
	client *redis.Client
	tracer trace.Tracer
}

func NewLoginRedisCache(client *redis.Client, tracer trace.Tracer) *LoginRedisCache {
	return &LoginRedisCache{
		client: client,
		tracer: tracer,
	}
}

func (cache *LoginRedisCache) Failures(ctx context.Context, username string) (int, error) {
	_, span := cache.tracer.Start(ctx, "LoginRedisCache.Failures")
	defer span.End()

	count, err := cache.client.Get(loginFailureKey(username)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		span.SetStatus(codes.Error, "Error getting cached value")
		return 0, err
	}
	return count, nil
}

// RecordFailure increments the counter; the first failure starts the window.
func (cache *LoginRedisCache) RecordFailure(ctx context.Context, username string) (int, error) {
	_, span := cache.tracer.Start(ctx, "LoginRedisCache.RecordFailure")
	defer span.End()

	key := loginFailureKey(username)
	count, err := cache.client.Incr(key).Result()
	if err != nil {
		span.SetStatus(codes.Error, "Error incrementing cached value")
		return 0, err
	}
	if count == 1 {
		if err := cache.client.Expire(key, loginFailureTTL).Err(); err != nil {
			span.SetStatus(codes.Error, "Error setting expiry")
			return int(count), err
		}
	}
	return int(count), nil
}

func (cache *LoginRedisCache) Reset(ctx context.Context, username string) error {
	_, span := cache.tracer.Start(ctx, "LoginRedisCache.Reset")
	defer span.End()

	if err := cache.client.Del(loginFailureKey(username)).Err(); err != nil {
		span.SetStatus(codes.Error, "Error deleting cached value")
		return err
	}
	return nil
}

func loginFailureKey(username string) string {
	return fmt.Sprintf("login_failures:%s", username)
}
