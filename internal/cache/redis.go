package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/maltedev/offer-pricer/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore shares prices between replicas. Values are JSON encoded.
type RedisStore struct {
	client RedisClient
}

func NewRedisStore(client RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (models.DerivedPrice, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.DerivedPrice{}, ErrMiss
		}
		return models.DerivedPrice{}, fmt.Errorf("redis get %s: %w", key, err)
	}

	var price models.DerivedPrice
	if err := json.Unmarshal(data, &price); err != nil {
		return models.DerivedPrice{}, fmt.Errorf("failed to decode cached price %s: %w", key, err)
	}
	return price, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value models.DerivedPrice, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode price: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
