package scraper

import (
	"context"
	"log/slog"

	"github.com/maltedev/offer-pricer/internal/config"
	"github.com/maltedev/offer-pricer/internal/models"
	"github.com/maltedev/offer-pricer/internal/outcome"
	"github.com/maltedev/offer-pricer/internal/parser"
)

// ListingOffer scrapes the lowest price from one marketplace listing page.
type ListingOffer struct {
	sessions Sessions
	listing  config.Listing
	logger   *slog.Logger
}

func NewListingOffer(sessions Sessions, listing config.Listing, logger *slog.Logger) *ListingOffer {
	return &ListingOffer{
		sessions: sessions,
		listing:  listing,
		logger:   logger.With("component", "listing_offer", "listing", listing.ID),
	}
}

func (o *ListingOffer) Listing() string {
	return o.listing.ID
}

func (o *ListingOffer) name() string {
	return "g2g:" + o.listing.ID
}

func (o *ListingOffer) FetchOffer(ctx context.Context) (models.Offer, error) {
	o.logger.Debug("scraping listing", "url", o.listing.URL)

	text, err := o.sessions.Text(ctx, o.listing.URL, o.listing.Selector)
	if err != nil {
		return models.Offer{}, outcome.WithSource(err, o.name())
	}

	value, err := parser.ParseFirstDecimal(text)
	if err != nil {
		return models.Offer{}, outcome.WithSource(err, o.name())
	}

	offer := models.NewOffer(o.listing.ID, o.name(), value)
	if err := validOffer(offer, o.name()); err != nil {
		return models.Offer{}, err
	}
	return offer, nil
}

// NewListingOffers builds one fetcher per configured listing.
func NewListingOffers(sessions Sessions, listings []config.Listing, logger *slog.Logger) map[string]OfferFetcher {
	fetchers := make(map[string]OfferFetcher, len(listings))
	for _, l := range listings {
		fetchers[l.ID] = NewListingOffer(sessions, l, logger)
	}
	return fetchers
}
