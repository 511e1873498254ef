package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/maltedev/offer-pricer/internal/models"
)

// MemcacheClient is the subset of *memcache.Client the store uses.
type MemcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Ping() error
}

type MemcacheStore struct {
	client MemcacheClient
}

func NewMemcacheStore(client MemcacheClient) *MemcacheStore {
	return &MemcacheStore{client: client}
}

func (s *MemcacheStore) Get(_ context.Context, key string) (models.DerivedPrice, error) {
	item, err := s.client.Get(key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.DerivedPrice{}, ErrMiss
		}
		return models.DerivedPrice{}, fmt.Errorf("memcache get %s: %w", key, err)
	}

	var price models.DerivedPrice
	if err := json.Unmarshal(item.Value, &price); err != nil {
		return models.DerivedPrice{}, fmt.Errorf("failed to decode cached price %s: %w", key, err)
	}
	return price, nil
}

func (s *MemcacheStore) Set(_ context.Context, key string, value models.DerivedPrice, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode price: %w", err)
	}

	err = s.client.Set(&memcache.Item{
		Key:        key,
		Value:      data,
		Expiration: int32(math.Ceil(ttl.Seconds())),
	})
	if err != nil {
		return fmt.Errorf("memcache set %s: %w", key, err)
	}
	return nil
}

func (s *MemcacheStore) Ping(_ context.Context) error {
	return s.client.Ping()
}
