package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maltedev/offer-pricer/internal/browser"
	"github.com/maltedev/offer-pricer/internal/models"
	"github.com/maltedev/offer-pricer/internal/outcome"
	"github.com/maltedev/offer-pricer/internal/pricing"
)

// PriceService is implemented by *pricing.Service.
type PriceService interface {
	Price(ctx context.Context, listing string) (models.DerivedPrice, error)
	Listings() []string
}

// Probe is one named health check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handlers struct {
	prices       PriceService
	probes       []Probe
	probeTimeout time.Duration
	legacyKeys   bool
	logger       *slog.Logger
}

func NewHandlers(prices PriceService, probes []Probe, legacyKeys bool, logger *slog.Logger) *Handlers {
	return &Handlers{
		prices:       prices,
		probes:       probes,
		probeTimeout: 45 * time.Second,
		legacyKeys:   legacyKeys,
		logger:       logger.With("component", "api"),
	}
}

// PriceResponse is the body of a successful price lookup.
type PriceResponse struct {
	Price int64 `json:"price"`
}

// ErrorResponse names the failing leg and the failure kind.
type ErrorResponse struct {
	Error  string `json:"error"`
	Source string `json:"source,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// QuoteResponse is the full breakdown of one derived price.
type QuoteResponse struct {
	RequestID string `json:"request_id"`
	models.DerivedPrice
}

// HealthResponse reports every probe result.
type HealthResponse struct {
	Status string            `json:"status"`
	Error  string            `json:"error,omitempty"`
	Checks map[string]string `json:"checks"`
}

// GetPrice handles GET /{listing}
func (h *Handlers) GetPrice(w http.ResponseWriter, r *http.Request) {
	listing := chi.URLParam(r, "listing")

	price, err := h.prices.Price(r.Context(), listing)
	if err != nil {
		h.respondPriceError(w, listing, err)
		return
	}

	if h.legacyKeys {
		h.respondJSON(w, http.StatusOK, map[string]int64{listing: price.Value})
		return
	}
	h.respondJSON(w, http.StatusOK, PriceResponse{Price: price.Value})
}

// GetQuote handles GET /api/v1/quotes/{listing}
func (h *Handlers) GetQuote(w http.ResponseWriter, r *http.Request) {
	listing := chi.URLParam(r, "listing")

	price, err := h.prices.Price(r.Context(), listing)
	if err != nil {
		h.respondPriceError(w, listing, err)
		return
	}

	h.respondJSON(w, http.StatusOK, QuoteResponse{
		RequestID:    uuid.NewString(),
		DerivedPrice: price,
	})
}

// ListListings handles GET /api/v1/listings
func (h *Handlers) ListListings(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string][]string{"listings": h.prices.Listings()})
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.probeTimeout)
	defer cancel()

	resp := HealthResponse{
		Status: "healthy",
		Checks: make(map[string]string, len(h.probes)),
	}

	for _, p := range h.probes {
		if err := p.Check(ctx); err != nil {
			h.logger.Warn("health probe failed", "probe", p.Name, "error", err)
			resp.Checks[p.Name] = checkStatus(err)
			if resp.Error == "" {
				resp.Error = err.Error()
			}
			continue
		}
		resp.Checks[p.Name] = "ok"
	}

	if resp.Error != "" {
		resp.Status = "unhealthy"
		h.respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// checkStatus names a failed probe by its outcome kind. A browser that
// cannot be launched at all is reported as config.
func checkStatus(err error) string {
	if errors.Is(err, browser.ErrLaunch) {
		return string(outcome.KindConfig)
	}
	return string(outcome.KindOf(err))
}

// Favicon handles GET /favicon.ico
func (h *Handlers) Favicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) respondPriceError(w http.ResponseWriter, listing string, err error) {
	if errors.Is(err, pricing.ErrUnknownListing) {
		h.respondError(w, http.StatusNotFound, "unknown listing: "+listing)
		return
	}

	var legErr *pricing.LegError
	if errors.As(err, &legErr) {
		h.logger.Error("price unavailable",
			"listing", listing,
			"leg", legErr.Leg,
			"kind", legErr.Kind(),
			"error", legErr.Err)
		h.respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:  legErr.Err.Error(),
			Source: legErr.Leg,
			Kind:   string(legErr.Kind()),
		})
		return
	}

	h.logger.Error("price unavailable", "listing", listing, "error", err)
	h.respondError(w, http.StatusInternalServerError, err.Error())
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{Error: message})
}
