package scraper

import (
	"context"
	"log/slog"

	"github.com/maltedev/offer-pricer/internal/models"
	"github.com/maltedev/offer-pricer/internal/outcome"
	"github.com/maltedev/offer-pricer/internal/parser"
)

// PanelRate scrapes the exchange rate from a cell of the exchange panel's
// order table. Prefer APIRate where the exchange exposes the same number.
type PanelRate struct {
	sessions Sessions
	url      string
	selector string
	pair     string
	logger   *slog.Logger
}

func NewPanelRate(sessions Sessions, url, selector, pair string, logger *slog.Logger) *PanelRate {
	return &PanelRate{
		sessions: sessions,
		url:      url,
		selector: selector,
		pair:     pair,
		logger:   logger.With("component", "panel_rate"),
	}
}

func (r *PanelRate) Name() string {
	return "rate-panel"
}

func (r *PanelRate) FetchRate(ctx context.Context) (models.Quote, error) {
	r.logger.Debug("scraping exchange panel", "url", r.url)

	text, err := r.sessions.Text(ctx, r.url, r.selector)
	if err != nil {
		return models.Quote{}, outcome.WithSource(err, r.Name())
	}

	value, err := parser.ParseGroupedInt(text)
	if err != nil {
		return models.Quote{}, outcome.WithSource(err, r.Name())
	}

	quote := models.NewQuote(r.pair, r.Name(), float64(value))
	if err := validQuote(quote, r.Name()); err != nil {
		return models.Quote{}, err
	}
	return quote, nil
}
