package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maltedev/offer-pricer/internal/outcome"
	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher starts a dedicated playwright driver and Chromium
// process for every session.
type PlaywrightLauncher struct{}

func (PlaywrightLauncher) Launch(ctx context.Context, opts *Options) (Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.launchArgs(),
		Timeout:  playwright.Float(remainingMillis(ctx, opts.Timeout)),
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	headers := make(map[string]string, len(opts.ExtraHeaders)+1)
	for k, v := range opts.ExtraHeaders {
		headers[k] = v
	}
	if opts.AcceptLanguage != "" {
		headers["Accept-Language"] = opts.AcceptLanguage
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(opts.UserAgent),
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(opts.Locale),
		TimezoneId:        playwright.String(opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: headers,
	}

	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &playwrightSession{
		pw:      pw,
		browser: browser,
		context: bctx,
		opts:    opts,
	}, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    *Options
}

func (s *playwrightSession) NewPage() (Page, error) {
	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(s.opts.Timeout.Milliseconds()))

	return newPlaywrightPage(page, s.opts), nil
}

func (s *playwrightSession) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}

type playwrightPage struct {
	page            playwright.Page
	navTimeout      time.Duration
	selectorTimeout time.Duration
}

func newPlaywrightPage(page playwright.Page, opts *Options) *playwrightPage {
	return &playwrightPage{
		page:            page,
		navTimeout:      opts.Timeout,
		selectorTimeout: opts.SelectorTimeout,
	}
}

func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(p.navigationMillis(ctx)),
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, playwright.ErrTimeout) {
			return outcome.Timeout(source, fmt.Sprintf("navigation to %s timed out", url), err)
		}
		return outcome.Transport(source, fmt.Sprintf("navigation to %s failed", url), err)
	}

	if resp != nil && resp.Status() >= 400 {
		return outcome.Transport(source, fmt.Sprintf("navigation to %s returned status %d", url, resp.Status()), nil)
	}

	return nil
}

// navigationMillis caps a page load by the session timeout and by ctx.
func (p *playwrightPage) navigationMillis(ctx context.Context) float64 {
	return remainingMillis(ctx, p.navTimeout)
}

// WaitForSelector waits until selector is attached to the DOM. A wait that
// expires while the operation still has time left means the page loaded
// without the element.
func (p *playwrightPage) WaitForSelector(ctx context.Context, selector string) error {
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(remainingMillis(ctx, p.selectorTimeout)),
	})
	if err == nil {
		return nil
	}

	switch {
	case ctx.Err() != nil:
		return outcome.Timeout(source, fmt.Sprintf("waiting for %q timed out", selector), err)
	case errors.Is(err, playwright.ErrTimeout):
		return outcome.ElementNotFound(source, fmt.Sprintf("no element for %q", selector), err)
	default:
		return outcome.Transport(source, fmt.Sprintf("waiting for %q failed", selector), err)
	}
}

func (p *playwrightPage) Content() (string, error) {
	html, err := p.page.Content()
	if err != nil {
		return "", outcome.Transport(source, "failed to get page content", err)
	}
	return html, nil
}

// remainingMillis is the smaller of limit and the time left before the
// context deadline, in playwright's millisecond unit.
func remainingMillis(ctx context.Context, limit time.Duration) float64 {
	d := limit
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return float64(d.Milliseconds())
}
