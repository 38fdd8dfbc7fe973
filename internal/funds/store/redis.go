package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/fundwatch/internal/funds/domain"
	"github.com/tair/fundwatch/pkg/logger"
)

// RedisConfig holds connection settings for the Redis backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps each user's favorites in a Redis set
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// FavoritesKey is the Redis key holding user's set
func FavoritesKey(user domain.UserKey) string {
	return fmt.Sprintf("user:%s:favorites", user)
}

func (s *RedisStore) List(ctx context.Context, user domain.UserKey) ([]string, error) {
	codes, err := s.client.SMembers(ctx, FavoritesKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return codes, nil
}

func (s *RedisStore) Add(ctx context.Context, user domain.UserKey, code string) error {
	if err := s.client.SAdd(ctx, FavoritesKey(user), code).Err(); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, user domain.UserKey, code string) error {
	if err := s.client.SRem(ctx, FavoritesKey(user), code).Err(); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// RedisDialer connects to Redis and verifies the connection with PING
func RedisDialer(cfg RedisConfig) Dialer {
	return func(ctx context.Context) (Backend, error) {
		if cfg.Addr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is not configured")
		}

		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
		}

		logger.Logger.Info().
			Str("redis_addr", cfg.Addr).
			Msg("Connected to Redis favorites store")

		return NewRedisStore(client), nil
	}
}
