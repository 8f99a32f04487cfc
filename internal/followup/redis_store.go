package followup

import (
	"context"
	"errors"
	"fmt"

	"lawdesk/internal/redis"
)

// RedisStore keeps follow-up contexts in redis so threads survive a
// process restart when a cache is deployed alongside the service.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(userID int64) string {
	return fmt.Sprintf("followup:%d", userID)
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (*Context, bool, error) {
	var fc Context
	err := s.client.GetJSON(ctx, redisKey(userID), &fc)
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load followup context: %w", err)
	}
	return &fc, true, nil
}

func (s *RedisStore) Put(ctx context.Context, fc *Context) error {
	if err := s.client.SetJSON(ctx, redisKey(fc.UserID), fc, contextTTL); err != nil {
		return fmt.Errorf("store followup context: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, redisKey(userID)); err != nil {
		return fmt.Errorf("remove followup context: %w", err)
	}
	return nil
}
