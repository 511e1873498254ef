package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/maltedev/offer-pricer/internal/models"
	"github.com/maltedev/offer-pricer/internal/outcome"
	"github.com/maltedev/offer-pricer/internal/parser"
)

const maxAPIBody = 4 << 20

// APIRate reads the exchange rate from a JSON endpoint instead of the
// exchange panel, so no browser is involved.
type APIRate struct {
	client *http.Client
	url    string
	field  string
	pair   string
}

func NewAPIRate(client *http.Client, url, field, pair string) *APIRate {
	return &APIRate{
		client: client,
		url:    url,
		field:  field,
		pair:   pair,
	}
}

func (r *APIRate) Name() string {
	return "rate-api"
}

func (r *APIRate) FetchRate(ctx context.Context) (models.Quote, error) {
	body, err := r.get(ctx)
	if err != nil {
		return models.Quote{}, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.Quote{}, outcome.ParseFailure(r.Name(), fmt.Sprintf("failed to decode response (%s)", snippet(body)), err)
	}

	if raw, ok := payload["status"]; ok {
		var status string
		if err := json.Unmarshal(raw, &status); err == nil && status != "ok" {
			return models.Quote{}, outcome.Transport(r.Name(), fmt.Sprintf("api returned non-ok status %q", status), nil)
		}
	}

	raw, ok := payload[r.field]
	if !ok {
		return models.Quote{}, outcome.ElementNotFound(r.Name(), fmt.Sprintf("field %q missing from response", r.field), nil)
	}

	value, err := numberField(raw)
	if err != nil {
		return models.Quote{}, outcome.WithSource(err, r.Name())
	}

	quote := models.NewQuote(r.pair, r.Name(), value)
	if err := validQuote(quote, r.Name()); err != nil {
		return models.Quote{}, err
	}
	return quote, nil
}

// Probe checks that the endpoint answers with a usable rate.
func (r *APIRate) Probe(ctx context.Context) error {
	_, err := r.FetchRate(ctx)
	return err
}

func (r *APIRate) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, outcome.Config(r.Name(), "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return nil, outcome.Timeout(r.Name(), "request timed out", err)
		}
		return nil, outcome.Transport(r.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, outcome.Transport(r.Name(), fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIBody))
	if err != nil {
		return nil, outcome.Transport(r.Name(), "failed to read response", err)
	}
	return body, nil
}

// numberField accepts both JSON numbers and numeric strings.
func numberField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parser.ParseNumber(s)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, outcome.ParseFailure("", fmt.Sprintf("field is not numeric: %s", snippet(raw)), err)
	}
	return f, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func snippet(b []byte) string {
	s := string(b)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
