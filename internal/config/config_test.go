package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Browser.Timeout)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "0.75", cfg.Pricing.Margin)
	assert.Equal(t, "1", cfg.Pricing.Divisor)
	assert.Equal(t, 1, cfg.Pricing.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Cache.Window)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Zero(t, cfg.Warmer.Interval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("PRICE_DIVISOR", "10")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("CACHE_WINDOW", "1m")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("API_LEGACY_KEYS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "10", cfg.Pricing.Divisor)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.Window)
	assert.False(t, cfg.Browser.Headless)
	assert.True(t, cfg.API.LegacyKeys)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = "http" }},
		{"zero browser timeout", func(c *Config) { c.Browser.Timeout = 0 }},
		{"no sessions", func(c *Config) { c.Browser.MaxSessions = 0 }},
		{"no attempts", func(c *Config) { c.Pricing.MaxAttempts = 0 }},
		{"negative window", func(c *Config) { c.Cache.Window = -time.Second }},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "etcd" }},
		{"inverted navigation delays", func(c *Config) { c.Browser.NavMinDelay = 2 * time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadSources_Defaults(t *testing.T) {
	sources, err := LoadSources("")
	require.NoError(t, err)

	assert.Equal(t, RateModeAPI, sources.Rate.Mode)
	assert.Equal(t, "lastTradePrice", sources.Rate.APIField)
	require.Len(t, sources.Listings, 2)

	tarren, ok := sources.Listing("Tarren-Mill")
	require.True(t, ok)
	assert.Contains(t, tarren.URL, "Tarren-Mill--EU----Horde")
	assert.Contains(t, tarren.URL, "sort=lowest_price")
	assert.Equal(t, ".precheckout__price-card", tarren.Selector)

	_, ok = sources.Listing("Draenor")
	assert.False(t, ok)
}

func TestLoadSources_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	content := `
rate:
  mode: panel
  panel_selector: ".exchange-table .item-price"
listings:
  - id: Draenor
    url: https://www.g2g.com/offer/Draenor--EU----Horde?sort=lowest_price
  - id: Silvermoon
    url: https://www.g2g.com/offer/Silvermoon--EU----Alliance?sort=lowest_price
    selector: ".offer-price"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	sources, err := LoadSources(path)
	require.NoError(t, err)

	assert.Equal(t, RateModePanel, sources.Rate.Mode)
	assert.Equal(t, ".exchange-table .item-price", sources.Rate.PanelSelector)
	assert.Equal(t, defaultPanelURL, sources.Rate.PanelURL)
	require.Len(t, sources.Listings, 2)
	assert.Equal(t, ".precheckout__price-card", sources.Listings[0].Selector)
	assert.Equal(t, ".offer-price", sources.Listings[1].Selector)
}

func TestLoadSources_EnvOverride(t *testing.T) {
	t.Setenv("RATE_API_URL", "http://localhost:9999/orderbook")

	sources, err := LoadSources("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/orderbook", sources.Rate.APIURL)
}

func TestSources_Validate(t *testing.T) {
	s := &Sources{
		Rate:     RateSource{Mode: RateModeAPI, APIURL: "http://x", APIField: "lastTradePrice"},
		Listings: []Listing{{ID: "A", URL: "http://a"}, {ID: "A", URL: "http://b"}},
	}
	assert.ErrorContains(t, s.Validate(), "duplicate listing")

	s.Listings = s.Listings[:1]
	s.Rate.Mode = "scrape"
	assert.ErrorContains(t, s.Validate(), "unknown rate mode")
}
