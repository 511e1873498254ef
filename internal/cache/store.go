package cache

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/offer-pricer/internal/models"
)

var ErrMiss = errors.New("cache miss")

// Store holds derived prices under string keys. Implementations must be
// safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (models.DerivedPrice, error)
	Set(ctx context.Context, key string, value models.DerivedPrice, ttl time.Duration) error
}
