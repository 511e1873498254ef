package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/maltedev/offer-pricer/internal/outcome"
)

// Policy retries fetches that failed with a retryable outcome (timeouts and
// transport errors). Missing elements and parse failures are returned at
// once since the next attempt would see the same markup.
type Policy struct {
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
	logger          *slog.Logger
}

type Option func(*Policy)

func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		p.maxAttempts = n
	}
}

func WithInitialInterval(d time.Duration) Option {
	return func(p *Policy) {
		p.initialInterval = d
	}
}

func WithMaxInterval(d time.Duration) Option {
	return func(p *Policy) {
		p.maxInterval = d
	}
}

// New returns a one-shot policy unless WithMaxAttempts raises the limit.
func New(logger *slog.Logger, opts ...Option) *Policy {
	p := &Policy{
		maxAttempts:     1,
		initialInterval: 2 * time.Second,
		maxInterval:     10 * time.Second,
		logger:          logger.With("component", "retry"),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.maxAttempts < 1 {
		p.maxAttempts = 1
	}

	return p
}

func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

func (p *Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	eb.MaxInterval = p.maxInterval
	eb.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.maxAttempts-1)), ctx)
}

// Do runs fn until it succeeds, fails permanently or the attempts run out.
// The error returned is always the last one fn produced, so its outcome
// kind and source survive context expiry.
func Do[T any](ctx context.Context, p *Policy, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.maxAttempts == 1 {
		return fn(ctx)
	}

	var (
		attempt int
		lastErr error
	)
	op := func() (T, error) {
		attempt++
		v, err := fn(ctx)
		lastErr = err
		if err != nil && !outcome.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, wait time.Duration) {
		p.logger.Warn("fetch failed, retrying",
			"fetch", name,
			"attempt", attempt,
			"max_attempts", p.maxAttempts,
			"wait", wait,
			"error", err)
	}

	v, err := backoff.RetryNotifyWithData(op, p.backOff(ctx), notify)
	if err != nil && lastErr != nil {
		return v, lastErr
	}
	return v, err
}
