package scraper

import (
	"context"

	"github.com/maltedev/offer-pricer/internal/browser"
	"github.com/maltedev/offer-pricer/internal/outcome"
	"github.com/maltedev/offer-pricer/internal/parser"
	"github.com/maltedev/offer-pricer/internal/ratelimit"
)

// Sessions runs a task against a fresh browser page. *browser.Manager
// satisfies it through SessionRunner.
type Sessions interface {
	Text(ctx context.Context, url, selector string) (string, error)
}

// SessionRunner reads element text through a browser.Manager, one session
// per call.
type SessionRunner struct {
	Manager *browser.Manager
	// Pacer spaces out navigations to the same host. Nil disables pacing.
	Pacer *ratelimit.HostLimiter
}

// Text navigates to url, waits for selector and returns the text of the
// first matching element in the rendered DOM.
func (s SessionRunner) Text(ctx context.Context, url, selector string) (string, error) {
	if err := s.Pacer.Wait(ctx, url); err != nil {
		return "", outcome.New(outcome.KindOf(err), "browser", "waiting for navigation slot", err)
	}

	return browser.WithSession(ctx, s.Manager, func(ctx context.Context, page browser.Page) (string, error) {
		return readText(ctx, page, url, selector)
	})
}

func readText(ctx context.Context, page browser.Page, url, selector string) (string, error) {
	if err := page.Navigate(ctx, url); err != nil {
		return "", err
	}

	if err := page.WaitForSelector(ctx, selector); err != nil {
		return "", err
	}

	html, err := page.Content()
	if err != nil {
		return "", err
	}

	text, err := parser.TextAt(html, selector)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", outcome.ElementNotFound("", "element for "+selector+" has no text", nil)
	}
	return text, nil
}
