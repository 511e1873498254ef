package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maltedev/offer-pricer/internal/browser"
	"github.com/maltedev/offer-pricer/internal/models"
	"github.com/maltedev/offer-pricer/internal/outcome"
	"github.com/maltedev/offer-pricer/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPriceService struct {
	mock.Mock
}

func (m *MockPriceService) Price(ctx context.Context, listing string) (models.DerivedPrice, error) {
	args := m.Called(ctx, listing)
	return args.Get(0).(models.DerivedPrice), args.Error(1)
}

func (m *MockPriceService) Listings() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func newTestServer(t *testing.T, svc PriceService, probes []Probe, legacy bool) *httptest.Server {
	t.Helper()
	h := NewHandlers(svc, probes, legacy, slog.Default())
	srv := httptest.NewServer(NewRouter(h, RouterOptions{}))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestGetPrice(t *testing.T) {
	svc := new(MockPriceService)
	svc.On("Price", mock.Anything, "Tarren-Mill").Return(models.DerivedPrice{Listing: "Tarren-Mill", Value: 1125000}, nil)
	srv := newTestServer(t, svc, nil, false)

	var body map[string]int64
	resp := getJSON(t, srv.URL+"/Tarren-Mill", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, map[string]int64{"price": 1125000}, body)
	svc.AssertExpectations(t)
}

func TestGetPrice_LegacyKeys(t *testing.T) {
	svc := new(MockPriceService)
	svc.On("Price", mock.Anything, "Kazzak").Return(models.DerivedPrice{Listing: "Kazzak", Value: 112500}, nil)
	srv := newTestServer(t, svc, nil, true)

	var body map[string]int64
	resp := getJSON(t, srv.URL+"/Kazzak", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]int64{"Kazzak": 112500}, body)
}

func TestGetPrice_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantSource string
		wantKind   string
	}{
		{
			name: "offer leg",
			err: &pricing.LegError{
				Leg:     pricing.LegOffer,
				Listing: "Kazzak",
				Err:     outcome.ElementNotFound("g2g:Kazzak", "no element matches .precheckout__price-card", nil),
			},
			wantStatus: http.StatusInternalServerError,
			wantSource: "offer",
			wantKind:   "element_not_found",
		},
		{
			name: "rate leg",
			err: &pricing.LegError{
				Leg:     pricing.LegRate,
				Listing: "Kazzak",
				Err:     outcome.Timeout("rate-api", "request timed out", context.DeadlineExceeded),
			},
			wantStatus: http.StatusInternalServerError,
			wantSource: "rate",
			wantKind:   "timeout",
		},
		{
			name:       "unknown listing",
			err:        fmt.Errorf("%w: Kazzak", pricing.ErrUnknownListing),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unattributed",
			err:        errors.New("formula failed"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPriceService)
			svc.On("Price", mock.Anything, "Kazzak").Return(models.DerivedPrice{}, tt.err)
			srv := newTestServer(t, svc, nil, false)

			var body ErrorResponse
			resp := getJSON(t, srv.URL+"/Kazzak", &body)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.wantSource, body.Source)
			assert.Equal(t, tt.wantKind, body.Kind)
		})
	}
}

func TestGetQuote(t *testing.T) {
	price := models.DerivedPrice{
		Listing: "Kazzak",
		Value:   1125000,
		Quote:   models.Quote{Pair: "USDT-IRT", Value: 60000, Source: "rate-api"},
		Offer:   models.Offer{Listing: "Kazzak", Value: 25, Source: "g2g:Kazzak"},
		Margin:  "0.75",
		Divisor: "1",
	}
	svc := new(MockPriceService)
	svc.On("Price", mock.Anything, "Kazzak").Return(price, nil)
	srv := newTestServer(t, svc, nil, false)

	var body map[string]interface{}
	resp := getJSON(t, srv.URL+"/api/v1/quotes/Kazzak", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["request_id"], 36)
	assert.Equal(t, float64(1125000), body["price"])
	assert.Equal(t, "0.75", body["margin"])
	quote := body["quote"].(map[string]interface{})
	assert.Equal(t, float64(60000), quote["value"])
}

func TestListListings(t *testing.T) {
	svc := new(MockPriceService)
	svc.On("Listings").Return([]string{"Kazzak", "Tarren-Mill"})
	srv := newTestServer(t, svc, nil, false)

	var body map[string][]string
	resp := getJSON(t, srv.URL+"/api/v1/listings", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Kazzak", "Tarren-Mill"}, body["listings"])
}

func TestHealth(t *testing.T) {
	ok := Probe{Name: "browser", Check: func(ctx context.Context) error { return nil }}
	failing := Probe{Name: "rate_api", Check: func(ctx context.Context) error {
		return outcome.Transport("rate-api", "unexpected status 503", nil)
	}}

	t.Run("healthy", func(t *testing.T) {
		srv := newTestServer(t, new(MockPriceService), []Probe{ok}, false)

		var body HealthResponse
		resp := getJSON(t, srv.URL+"/health", &body)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, map[string]string{"browser": "ok"}, body.Checks)
	})

	t.Run("unhealthy", func(t *testing.T) {
		srv := newTestServer(t, new(MockPriceService), []Probe{ok, failing}, false)

		var body HealthResponse
		resp := getJSON(t, srv.URL+"/health", &body)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Contains(t, body.Error, "unexpected status 503")
		assert.Equal(t, "transport", body.Checks["rate_api"])
		assert.Equal(t, "ok", body.Checks["browser"])
	})
}

func TestHealth_ReportsFailureKind(t *testing.T) {
	launchFailed := Probe{Name: "browser", Check: func(ctx context.Context) error {
		return outcome.Transport("browser", "failed to launch browser",
			fmt.Errorf("%w: %v", browser.ErrLaunch, errors.New("playwright driver not installed")))
	}}
	rateSlow := Probe{Name: "rate_api", Check: func(ctx context.Context) error {
		return outcome.Timeout("rate-api", "request timed out", context.DeadlineExceeded)
	}}
	srv := newTestServer(t, new(MockPriceService), []Probe{launchFailed, rateSlow}, false)

	var body HealthResponse
	resp := getJSON(t, srv.URL+"/health", &body)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "config", body.Checks["browser"])
	assert.Equal(t, "timeout", body.Checks["rate_api"])
	assert.Contains(t, body.Error, "playwright driver not installed")
}

func TestFavicon(t *testing.T) {
	svc := new(MockPriceService)
	srv := newTestServer(t, svc, nil, false)

	resp := getJSON(t, srv.URL+"/favicon.ico", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	svc.AssertNotCalled(t, "Price", mock.Anything, mock.Anything)
}
