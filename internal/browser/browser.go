package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maltedev/offer-pricer/internal/outcome"
	"golang.org/x/sync/semaphore"
)

const source = "browser"

// ErrLaunch marks failures to bring up the browser runtime itself, as
// opposed to failures while using a running browser.
var ErrLaunch = errors.New("browser launch failed")

type Options struct {
	Headless        bool
	Timeout         time.Duration
	SelectorTimeout time.Duration
	MaxSessions     int
	UserAgent       string
	ViewportWidth   int
	ViewportHeight  int
	AcceptLanguage  string
	TimezoneID      string
	Locale          string
	ProxyServer     string
	ExtraHeaders    map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:        true,
		Timeout:         30 * time.Second,
		SelectorTimeout: 20 * time.Second,
		MaxSessions:     4,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:   1920,
		ViewportHeight:  1080,
		AcceptLanguage:  "en-US,en;q=0.9",
		TimezoneID:      "UTC",
		Locale:          "en-US",
		ExtraHeaders: map[string]string{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"DNT":    "1",
		},
	}
}

// launchArgs are the stability flags used for every browser process.
func (o *Options) launchArgs() []string {
	return []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--disable-dev-shm-usage",
		"--disable-background-timer-throttling",
		"--disable-backgrounding-occluded-windows",
		"--disable-renderer-backgrounding",
		"--disable-blink-features=AutomationControlled",
		"--no-first-run",
		fmt.Sprintf("--window-size=%d,%d", o.ViewportWidth, o.ViewportHeight),
		"--user-agent=" + o.UserAgent,
	}
}

// Page is the subset of a browser tab the fetchers need. Implementations
// return *outcome.Error values.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string) error
	Content() (string, error)
}

// Session owns one browser process and everything opened inside it.
type Session interface {
	NewPage() (Page, error)
	Close() error
}

type Launcher interface {
	Launch(ctx context.Context, opts *Options) (Session, error)
}

// Manager hands out short-lived browser sessions. No session is ever
// shared between two calls.
type Manager struct {
	launcher Launcher
	opts     *Options
	slots    *semaphore.Weighted
	logger   *slog.Logger
}

func NewManager(launcher Launcher, opts *Options, logger *slog.Logger) *Manager {
	if opts == nil {
		opts = DefaultOptions()
	}
	maxSessions := opts.MaxSessions
	if maxSessions < 1 {
		maxSessions = 1
	}

	return &Manager{
		launcher: launcher,
		opts:     opts,
		slots:    semaphore.NewWeighted(int64(maxSessions)),
		logger:   logger.With("component", "browser"),
	}
}

func (m *Manager) Options() *Options {
	return m.opts
}

// Probe launches and releases a session without navigating anywhere.
func (m *Manager) Probe(ctx context.Context) error {
	_, err := WithSession(ctx, m, func(ctx context.Context, page Page) (struct{}, error) {
		return struct{}{}, nil
	})
	return err
}

// WithSession runs fn against a fresh page inside a fresh browser. The
// session is released exactly once before WithSession returns, whether fn
// returns, fails, panics or outlives the operation timeout.
func WithSession[T any](ctx context.Context, m *Manager, fn func(ctx context.Context, page Page) (T, error)) (T, error) {
	var zero T

	if err := m.slots.Acquire(ctx, 1); err != nil {
		return zero, contextOutcome(err, "waiting for a browser slot")
	}
	defer m.slots.Release(1)

	opCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	started := time.Now()
	session, err := m.launcher.Launch(opCtx, m.opts)
	if err != nil {
		if opCtx.Err() != nil {
			return zero, contextOutcome(opCtx.Err(), "launching browser")
		}
		m.logger.Error("failed to launch browser", "error", err)
		return zero, outcome.Transport(source, "failed to launch browser", fmt.Errorf("%w: %v", ErrLaunch, err))
	}

	release := m.releaser(session, started)
	defer release()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: outcome.Transport(source, "session task panicked", fmt.Errorf("%v", r))}
			}
		}()

		page, err := session.NewPage()
		if err != nil {
			done <- result{err: outcome.Transport(source, "failed to create page", err)}
			return
		}

		value, err := fn(opCtx, page)
		done <- result{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-opCtx.Done():
		release()
		return zero, contextOutcome(opCtx.Err(), fmt.Sprintf("browser operation exceeded %s", m.opts.Timeout))
	}
}

func (m *Manager) releaser(session Session, started time.Time) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := session.Close(); err != nil {
				m.logger.Warn("failed to release browser session", "error", err)
			}
			m.logger.Debug("browser session released", "held", time.Since(started))
		})
	}
}

func contextOutcome(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return outcome.Timeout(source, message, err)
	}
	return outcome.Transport(source, message, err)
}
