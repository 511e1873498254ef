package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/offer-pricer/internal/models"
	"golang.org/x/sync/singleflight"
)

// PriceCache memoizes derived prices per listing for the current time
// bucket. A bucket is the wall clock truncated to the window, so every
// request inside the same window sees the same aggregation pass.
type PriceCache struct {
	store          Store
	window         time.Duration
	computeTimeout time.Duration
	now            func() time.Time
	group          singleflight.Group
	logger         *slog.Logger
}

type Option func(*PriceCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *PriceCache) {
		c.now = now
	}
}

// WithComputeTimeout bounds a shared computation, which no longer follows
// the deadline of the request that started it.
func WithComputeTimeout(d time.Duration) Option {
	return func(c *PriceCache) {
		c.computeTimeout = d
	}
}

// NewPriceCache returns a cache over store. A zero window disables caching.
func NewPriceCache(store Store, window time.Duration, logger *slog.Logger, opts ...Option) *PriceCache {
	c := &PriceCache{
		store:          store,
		window:         window,
		computeTimeout: 2 * time.Minute,
		now:            time.Now,
		logger:         logger.With("component", "price_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key identifies one listing in one bucket.
func Key(listing string, bucket time.Time) string {
	return fmt.Sprintf("price:%s:%d", listing, bucket.Unix())
}

// GetOrCompute returns the cached price for listing in the current bucket,
// or runs compute once and stores its result. Concurrent misses on the same
// key share a single compute call, which runs detached from any one
// caller: a caller that gives up gets its own context error while the
// others still receive the price. Failures are returned but never stored.
func (c *PriceCache) GetOrCompute(ctx context.Context, listing string, compute func(context.Context) (models.DerivedPrice, error)) (models.DerivedPrice, error) {
	if c.window <= 0 || c.store == nil {
		return compute(ctx)
	}

	bucket := c.now().Truncate(c.window)
	key := Key(listing, bucket)

	if price, ok := c.lookup(ctx, key); ok {
		return price, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		computeCtx, cancel := context.WithTimeout(shared, c.computeTimeout)
		defer cancel()

		if price, ok := c.lookup(computeCtx, key); ok {
			return price, nil
		}

		price, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}

		ttl := bucket.Add(c.window).Sub(c.now())
		if ttl < time.Second {
			ttl = time.Second
		}
		if err := c.store.Set(computeCtx, key, price, ttl); err != nil {
			c.logger.Warn("failed to store price", "key", key, "error", err)
		}
		return price, nil
	})

	select {
	case <-ctx.Done():
		return models.DerivedPrice{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.DerivedPrice{}, res.Err
		}
		if res.Shared {
			c.logger.Debug("shared in-flight computation", "key", key)
		}
		return res.Val.(models.DerivedPrice), nil
	}
}

func (c *PriceCache) lookup(ctx context.Context, key string) (models.DerivedPrice, bool) {
	price, err := c.store.Get(ctx, key)
	if err == nil {
		c.logger.Debug("cache hit", "key", key)
		return price, true
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warn("cache lookup failed, treating as miss", "key", key, "error", err)
	}
	return models.DerivedPrice{}, false
}
