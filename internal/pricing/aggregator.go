package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/maltedev/offer-pricer/internal/models"
	"github.com/maltedev/offer-pricer/internal/outcome"
	"github.com/maltedev/offer-pricer/internal/retry"
	"github.com/maltedev/offer-pricer/internal/scraper"
	"golang.org/x/sync/errgroup"
)

var ErrUnknownListing = errors.New("unknown listing")

const (
	LegRate  = "rate"
	LegOffer = "offer"
)

// LegError attributes a failed aggregation to the leg that caused it.
type LegError struct {
	Leg     string
	Listing string
	Err     error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("%s leg failed for %s: %v", e.Leg, e.Listing, e.Err)
}

func (e *LegError) Unwrap() error {
	return e.Err
}

// Kind returns the outcome kind of the underlying failure.
func (e *LegError) Kind() outcome.Kind {
	return outcome.KindOf(e.Err)
}

// Aggregator fetches the rate and one listing's offer concurrently and
// combines them with the formula.
type Aggregator struct {
	rate    scraper.RateFetcher
	offers  map[string]scraper.OfferFetcher
	formula Formula
	retry   *retry.Policy
	logger  *slog.Logger

	apply func(offer, rate float64) (int64, error)
}

func NewAggregator(rate scraper.RateFetcher, offers map[string]scraper.OfferFetcher, formula Formula, policy *retry.Policy, logger *slog.Logger) *Aggregator {
	if policy == nil {
		policy = retry.New(logger)
	}

	return &Aggregator{
		rate:    rate,
		offers:  offers,
		formula: formula,
		retry:   policy,
		logger:  logger.With("component", "aggregator"),
		apply:   formula.Apply,
	}
}

// Listings returns the configured listing identities in sorted order.
func (a *Aggregator) Listings() []string {
	ids := make([]string, 0, len(a.offers))
	for id := range a.offers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (a *Aggregator) Has(listing string) bool {
	_, ok := a.offers[listing]
	return ok
}

// Compute runs one aggregation pass. The legs run concurrently and the
// first failure cancels the other one; the returned error is then a
// *LegError for that first failure and no price is produced.
func (a *Aggregator) Compute(ctx context.Context, listing string) (models.DerivedPrice, error) {
	offerFetcher, ok := a.offers[listing]
	if !ok {
		return models.DerivedPrice{}, fmt.Errorf("%w: %s", ErrUnknownListing, listing)
	}

	start := time.Now()

	var (
		quote models.Quote
		offer models.Offer
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		quote, err = retry.Do(gctx, a.retry, a.rate.Name(), a.rate.FetchRate)
		if err != nil {
			return &LegError{Leg: LegRate, Listing: listing, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		offer, err = retry.Do(gctx, a.retry, "offer:"+listing, offerFetcher.FetchOffer)
		if err != nil {
			return &LegError{Leg: LegOffer, Listing: listing, Err: err}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.logger.Warn("aggregation failed",
			"listing", listing,
			"error", err,
			"duration", time.Since(start))
		return models.DerivedPrice{}, err
	}

	value, err := a.apply(offer.Value, quote.Value)
	if err != nil {
		return models.DerivedPrice{}, fmt.Errorf("failed to apply formula for %s: %w", listing, err)
	}

	a.logger.Info("price computed",
		"listing", listing,
		"rate", quote.Value,
		"offer", offer.Value,
		"price", value,
		"duration", time.Since(start))

	return models.DerivedPrice{
		Listing:    listing,
		Value:      value,
		Quote:      quote,
		Offer:      offer,
		Margin:     a.formula.Margin.String(),
		Divisor:    a.formula.Divisor.String(),
		ComputedAt: time.Now(),
	}, nil
}
