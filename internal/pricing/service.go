package pricing

import (
	"context"
	"fmt"

	"github.com/maltedev/offer-pricer/internal/models"
)

// Memo caches derived prices per listing. *cache.PriceCache implements it.
type Memo interface {
	GetOrCompute(ctx context.Context, listing string, compute func(context.Context) (models.DerivedPrice, error)) (models.DerivedPrice, error)
}

// Service is what the HTTP layer and the warmer call.
type Service struct {
	agg  *Aggregator
	memo Memo
}

// NewService returns a service that computes every request when memo is nil.
func NewService(agg *Aggregator, memo Memo) *Service {
	return &Service{agg: agg, memo: memo}
}

func (s *Service) Price(ctx context.Context, listing string) (models.DerivedPrice, error) {
	if !s.agg.Has(listing) {
		return models.DerivedPrice{}, fmt.Errorf("%w: %s", ErrUnknownListing, listing)
	}

	compute := func(ctx context.Context) (models.DerivedPrice, error) {
		return s.agg.Compute(ctx, listing)
	}

	if s.memo == nil {
		return compute(ctx)
	}
	return s.memo.GetOrCompute(ctx, listing, compute)
}

func (s *Service) Listings() []string {
	return s.agg.Listings()
}
