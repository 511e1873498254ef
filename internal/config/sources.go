package config

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	RateModeAPI   = "api"
	RateModePanel = "panel"
)

// Sources holds every upstream URL and DOM locator. Locators track third
// party markup and are expected to change without notice, so they live in
// configuration rather than in fetch code.
type Sources struct {
	Rate     RateSource `mapstructure:"rate"`
	Listings []Listing  `mapstructure:"listings"`
}

type RateSource struct {
	Mode          string `mapstructure:"mode"`
	Pair          string `mapstructure:"pair"`
	APIURL        string `mapstructure:"api_url"`
	APIField      string `mapstructure:"api_field"`
	PanelURL      string `mapstructure:"panel_url"`
	PanelSelector string `mapstructure:"panel_selector"`
}

// Listing identifies one tracked marketplace offer: server, faction and the
// marketplace filters are all encoded in URL.
type Listing struct {
	ID       string `mapstructure:"id"`
	URL      string `mapstructure:"url"`
	Selector string `mapstructure:"selector"`
}

const (
	defaultRateAPIURL = "https://api.nobitex.ir/v2/orderbook/USDTIRT"
	defaultPanelURL   = "https://nobitex.ir/panel/exchange/usdt-irt"

	defaultPanelSelector = "#nobitex-panel > div > div.nobitex-panel__main.sidebar-is-minimize > " +
		"div.nobitex-panel__main--nuxt > div.mb-40 > div.max-w-1730px.mx-auto > " +
		"div.exchange.d-flex.flex-column.text-aligned.pb-8.pb-32-md > " +
		"div.exchange__main.d-flex.mx-8-md.mx-8-lg.mx-8-xl > " +
		"div.exchange__main--overview.d-flex.flex-column-reverse.flex-xl-row.w-100.ml-8-multi-md.ml-8-multi-xl > " +
		"div.exchange-order-list.mr-8-multi-md.position-relative.custom-scroll-bar.w-100.card-box > " +
		"div:nth-child(2) > div > div.exchange-table-container__tables > div:nth-child(3) > " +
		"div.exchange-table.mb-0.h-100 > div > div:nth-child(10) > " +
		"div.item-price.exchange-table__row--column.px-8.flex-1.text-right.fs-15.fw-bold.py-1.text-success"

	defaultOfferSelector = ".precheckout__price-card"
)

func DefaultListings() []Listing {
	return []Listing{
		{
			ID: "Tarren-Mill",
			URL: "https://www.g2g.com/offer/Tarren-Mill--EU----Horde?service_id=lgc_service_1&brand_id=lgc_game_2299" +
				"&region_id=ac3f85c1-7562-437e-b125-e89576b9a38e&fa=lgc_2299_dropdown_17%3Algc_2299_dropdown_17_42127" +
				"&sort=lowest_price&include_offline=1",
			Selector: defaultOfferSelector,
		},
		{
			ID: "Kazzak",
			URL: "https://www.g2g.com/offer/Kazzak--EU----Horde?service_id=lgc_service_1&brand_id=lgc_game_2299" +
				"&region_id=ac3f85c1-7562-437e-b125-e89576b9a38e&fa=lgc_2299_dropdown_17%3Algc_2299_dropdown_17_41959" +
				"&sort=lowest_price&include_offline=1",
			Selector: defaultOfferSelector,
		},
	}
}

// LoadSources reads the optional YAML sources file at path on top of the
// built-in defaults. RATE_SOURCE, RATE_API_URL and RATE_API_FIELD override
// the file.
func LoadSources(path string) (*Sources, error) {
	v := viper.New()

	v.SetDefault("rate.mode", RateModeAPI)
	v.SetDefault("rate.pair", "USDT-IRT")
	v.SetDefault("rate.api_url", defaultRateAPIURL)
	v.SetDefault("rate.api_field", "lastTradePrice")
	v.SetDefault("rate.panel_url", defaultPanelURL)
	v.SetDefault("rate.panel_selector", defaultPanelSelector)

	_ = v.BindEnv("rate.mode", "RATE_SOURCE")
	_ = v.BindEnv("rate.api_url", "RATE_API_URL")
	_ = v.BindEnv("rate.api_field", "RATE_API_FIELD")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading sources file: %w", err)
		}
	}

	var sources Sources
	if err := v.Unmarshal(&sources); err != nil {
		return nil, fmt.Errorf("error unmarshalling sources: %w", err)
	}

	if len(sources.Listings) == 0 {
		sources.Listings = DefaultListings()
	}
	for i := range sources.Listings {
		if sources.Listings[i].Selector == "" {
			sources.Listings[i].Selector = defaultOfferSelector
		}
	}

	if err := sources.Validate(); err != nil {
		return nil, err
	}

	return &sources, nil
}

func (s *Sources) Validate() error {
	switch s.Rate.Mode {
	case RateModeAPI:
		if s.Rate.APIURL == "" || s.Rate.APIField == "" {
			return fmt.Errorf("rate api mode needs api_url and api_field")
		}
	case RateModePanel:
		if s.Rate.PanelURL == "" || s.Rate.PanelSelector == "" {
			return fmt.Errorf("rate panel mode needs panel_url and panel_selector")
		}
	default:
		return fmt.Errorf("unknown rate mode %q", s.Rate.Mode)
	}

	seen := make(map[string]bool, len(s.Listings))
	for _, l := range s.Listings {
		if l.ID == "" || l.URL == "" {
			return fmt.Errorf("listing needs id and url: %+v", l)
		}
		if seen[l.ID] {
			return fmt.Errorf("duplicate listing %q", l.ID)
		}
		seen[l.ID] = true
	}

	return nil
}

func (s *Sources) Listing(id string) (Listing, bool) {
	for _, l := range s.Listings {
		if l.ID == id {
			return l, true
		}
	}
	return Listing{}, false
}
