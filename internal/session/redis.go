package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDirectory keeps sessions in Redis so they survive restarts and
// are shared across replicas. Tokens expire after the configured TTL.
type RedisDirectory struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDirectory connects to Redis and verifies it with a ping.
func NewRedisDirectory(ctx context.Context, addr, password string, ttl time.Duration) (*RedisDirectory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisDirectory{client: client, ttl: ttl}, nil
}

// Close releases the Redis connection.
func (d *RedisDirectory) Close() error {
	return d.client.Close()
}

func (d *RedisDirectory) Issue(ctx context.Context, userID int64) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	if err := d.client.Set(ctx, sessionKey(token), userID, d.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (d *RedisDirectory) Lookup(ctx context.Context, token string) (int64, error) {
	val, err := d.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("lookup session: %w", err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt session value %q: %w", val, err)
	}
	return userID, nil
}

func (d *RedisDirectory) Revoke(ctx context.Context, token string) error {
	deleted, err := d.client.Del(ctx, sessionKey(token)).Result()
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if deleted == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func sessionKey(token string) string {
	return "session:" + token
}
