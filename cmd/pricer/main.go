package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/maltedev/offer-pricer/internal/api"
	"github.com/maltedev/offer-pricer/internal/browser"
	"github.com/maltedev/offer-pricer/internal/cache"
	"github.com/maltedev/offer-pricer/internal/config"
	"github.com/maltedev/offer-pricer/internal/pricing"
	"github.com/maltedev/offer-pricer/internal/ratelimit"
	"github.com/maltedev/offer-pricer/internal/retry"
	"github.com/maltedev/offer-pricer/internal/scraper"
	"github.com/maltedev/offer-pricer/internal/warmer"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	sources, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		logger.Error("failed to load sources", "error", err)
		os.Exit(1)
	}

	formula, err := pricing.NewFormula(cfg.Pricing.Margin, cfg.Pricing.Divisor)
	if err != nil {
		logger.Error("invalid pricing configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Browser sessions are launched per fetch, never shared
	sessions := browser.NewManager(browser.PlaywrightLauncher{}, browserOptions(cfg.Browser), logger)
	runner := scraper.SessionRunner{
		Manager: sessions,
		Pacer:   ratelimit.NewHostLimiter(cfg.Browser.NavMinDelay, cfg.Browser.NavMaxDelay),
	}

	httpClient := &http.Client{Timeout: cfg.Pricing.RateTimeout}
	probes := []api.Probe{{Name: "browser", Check: sessions.Probe}}

	var rate scraper.RateFetcher
	switch sources.Rate.Mode {
	case config.RateModePanel:
		rate = scraper.NewPanelRate(runner, sources.Rate.PanelURL, sources.Rate.PanelSelector, sources.Rate.Pair, logger)
	default:
		apiRate := scraper.NewAPIRate(httpClient, sources.Rate.APIURL, sources.Rate.APIField, sources.Rate.Pair)
		rate = apiRate
		if cfg.API.ProbeRateAPI {
			probes = append(probes, api.Probe{Name: "rate_api", Check: apiRate.Probe})
		}
	}

	offers := scraper.NewListingOffers(runner, sources.Listings, logger)

	policy := retry.New(logger,
		retry.WithMaxAttempts(cfg.Pricing.MaxAttempts),
		retry.WithInitialInterval(cfg.Pricing.RetryInterval),
	)
	aggregator := pricing.NewAggregator(rate, offers, formula, policy, logger)

	// Result cache
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize cache", "backend", cfg.Cache.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	priceCache := cache.NewPriceCache(store, cfg.Cache.Window, logger,
		cache.WithComputeTimeout(cfg.Server.RequestTimeout),
	)
	service := pricing.NewService(aggregator, priceCache)

	w := warmer.New(service, cfg.Warmer.Interval, logger)
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start cache warmer", "error", err)
		os.Exit(1)
	}

	handlers := api.NewHandlers(service, probes, cfg.API.LegacyKeys, logger)
	router := api.NewRouter(handlers, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting",
		"addr", server.Addr,
		"listings", service.Listings(),
		"rate_source", rate.Name(),
		"formula", formula.String(),
		"cache_backend", cfg.Cache.Backend,
		"cache_window", cfg.Cache.Window)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func browserOptions(cfg config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Headless
	opts.Timeout = cfg.Timeout
	opts.SelectorTimeout = cfg.SelectorTimeout
	opts.MaxSessions = cfg.MaxSessions
	opts.UserAgent = cfg.UserAgent
	opts.ViewportWidth = cfg.ViewportWidth
	opts.ViewportHeight = cfg.ViewportHeight
	opts.AcceptLanguage = cfg.AcceptLanguage
	opts.TimezoneID = cfg.TimezoneID
	opts.Locale = cfg.Locale
	opts.ProxyServer = cfg.ProxyServer
	return opts
}

func newStore(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := cache.NewRedisStore(client)
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return store, func() { client.Close() }, nil

	case "memcache":
		store := cache.NewMemcacheStore(memcache.New(cfg.Memcache.Addr))
		if err := store.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to memcached: %w", err)
		}
		return store, func() {}, nil

	default:
		store, err := cache.NewMemoryStore(cfg.Cache.MaxItems)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
}
