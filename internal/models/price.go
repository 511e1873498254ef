package models

import (
	"math"
	"time"
)

// Quote is an exchange rate between two currencies, e.g. USDT to IRT.
type Quote struct {
	Pair      string    `json:"pair"`
	Value     float64   `json:"value"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Offer is the lowest marketplace price for one listing identity.
type Offer struct {
	Listing   string    `json:"listing"`
	Value     float64   `json:"value"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// DerivedPrice is floor(offer * rate * margin / divisor). It carries the
// quote and offer it was computed from so cached copies stay consistent.
type DerivedPrice struct {
	Listing    string    `json:"listing"`
	Value      int64     `json:"price"`
	Quote      Quote     `json:"quote"`
	Offer      Offer     `json:"offer"`
	Margin     string    `json:"margin"`
	Divisor    string    `json:"divisor"`
	ComputedAt time.Time `json:"computed_at"`
}

func NewQuote(pair, source string, value float64) Quote {
	return Quote{
		Pair:      pair,
		Value:     value,
		Source:    source,
		FetchedAt: time.Now(),
	}
}

func NewOffer(listing, source string, value float64) Offer {
	return Offer{
		Listing:   listing,
		Value:     value,
		Source:    source,
		FetchedAt: time.Now(),
	}
}

func (q *Quote) IsValid() bool {
	return q.Value > 0 && !math.IsInf(q.Value, 1)
}

func (o *Offer) IsValid() bool {
	return o.Value > 0 && !math.IsInf(o.Value, 1) && o.Listing != ""
}
