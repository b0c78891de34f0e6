package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTokenPrefix = "auth:token:"

// RedisTokenStore keeps hashed bearer tokens in Redis under auth:token:<hash>.
type RedisTokenStore struct {
	rdb *redis.Client
	ttl time.Duration // 0 keeps tokens until logout
}

// NewRedisTokenStore creates a token store on top of an existing client.
func NewRedisTokenStore(rdb *redis.Client, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, ttl: ttl}
}

// Save stores a token hash for the user.
func (s *RedisTokenStore) Save(ctx context.Context, userID int64, hash string) error {
	if err := s.rdb.Set(ctx, redisTokenPrefix+hash, userID, s.ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// UserID resolves a token hash to its owner.
func (s *RedisTokenStore) UserID(ctx context.Context, hash string) (int64, error) {
	val, err := s.rdb.Get(ctx, redisTokenPrefix+hash).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolve token: %w", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt token entry: %w", err)
	}
	return id, nil
}

// Delete revokes exactly one token.
func (s *RedisTokenStore) Delete(ctx context.Context, hash string) error {
	n, err := s.rdb.Del(ctx, redisTokenPrefix+hash).Result()
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
