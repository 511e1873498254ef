package scraper

import (
	"context"
	"fmt"

	"github.com/maltedev/offer-pricer/internal/models"
	"github.com/maltedev/offer-pricer/internal/outcome"
)

// RateFetcher returns the current exchange rate. Every error is an
// *outcome.Error.
type RateFetcher interface {
	FetchRate(ctx context.Context) (models.Quote, error)
	Name() string
}

// OfferFetcher returns the current best offer for one listing identity.
type OfferFetcher interface {
	FetchOffer(ctx context.Context) (models.Offer, error)
	Listing() string
}

func validQuote(q models.Quote, source string) error {
	if !q.IsValid() {
		return outcome.ParseFailure(source, fmt.Sprintf("exchange rate must be positive, got %v", q.Value), nil)
	}
	return nil
}

func validOffer(o models.Offer, source string) error {
	if !o.IsValid() {
		return outcome.ParseFailure(source, fmt.Sprintf("offer must be positive, got %v", o.Value), nil)
	}
	return nil
}
