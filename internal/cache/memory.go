package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/maltedev/offer-pricer/internal/models"
)

// MemoryStore keeps prices in process.
type MemoryStore struct {
	cache *ristretto.Cache
}

func NewMemoryStore(maxItems int64) (*MemoryStore, error) {
	if maxItems < 1 {
		maxItems = 1
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory cache failed: %w", err)
	}
	return &MemoryStore{cache: c}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (models.DerivedPrice, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return models.DerivedPrice{}, ErrMiss
	}
	price, ok := v.(models.DerivedPrice)
	if !ok {
		return models.DerivedPrice{}, ErrMiss
	}
	return price, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value models.DerivedPrice, ttl time.Duration) error {
	if !s.cache.SetWithTTL(key, value, 1, ttl) {
		return fmt.Errorf("memory cache rejected %s", key)
	}
	s.cache.Wait()
	return nil
}

func (s *MemoryStore) Close() { s.cache.Close() }
