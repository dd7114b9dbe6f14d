package crawler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"sjsage522/vehiclecrawler/helpers"
	"sjsage522/vehiclecrawler/logger"
	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"
)

// BrowserOptions configures the browser session
type BrowserOptions struct {
	Headless        bool
	Bin             string
	ControlURL      string
	PageLoadTimeout time.Duration
	RenderWait      time.Duration
}

// BrowserSession renders pages in one stealth tab that is reused for every page of a run
type BrowserSession struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	opts     BrowserOptions
	logger   *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// OpenBrowserSession launches a local browser, or connects to ControlURL when set,
// and opens the stealth tab
func OpenBrowserSession(ctx context.Context, opts BrowserOptions, log *logger.Logger) (*BrowserSession, error) {
	session := &BrowserSession{
		opts:   opts,
		logger: log,
	}

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(opts.Headless).
			Set("disable-blink-features", "AutomationControlled").
			Set("disable-dev-shm-usage").
			Set("no-sandbox").
			Set("disable-gpu").
			Set("window-size", "1920,1080").
			Set("user-agent", helpers.RandomUserAgent())

		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		} else if path, found := launcher.LookPath(); found {
			l = l.Bin(path)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, crawlerrors.New(crawlerrors.ErrorTypeNetwork, "browser", "failed to launch browser", err)
		}
		session.launcher = l
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		session.Close()
		return nil, crawlerrors.New(crawlerrors.ErrorTypeNetwork, "browser", "failed to connect to browser", err)
	}
	// Detach from ctx so that Close still reaches the browser after cancellation
	session.browser = browser.Context(context.Background())

	page, err := stealth.Page(session.browser)
	if err != nil {
		session.Close()
		return nil, crawlerrors.New(crawlerrors.ErrorTypeNetwork, "browser", "failed to open page", err)
	}
	session.page = page

	log.Info().Bool("headless", opts.Headless).Bool("remote", opts.ControlURL != "").Msg("Browser session opened")
	return session, nil
}

// Fetch navigates the tab to url, waits for load and the render wait, and returns the DOM
func (s *BrowserSession) Fetch(ctx context.Context, url string) (string, error) {
	page := s.page.Context(ctx).Timeout(s.opts.PageLoadTimeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return "", s.fetchError(ctx, url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", s.fetchError(ctx, url, err)
	}

	if err := sleepContext(ctx, s.opts.RenderWait); err != nil {
		return "", err
	}

	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", crawlerrors.NewNetwork(url, "failed to read page content", err)
	}

	if marker, ok := DetectChallenge(html); ok {
		return "", crawlerrors.NewChallenge(url, marker)
	}
	return html, nil
}

// fetchError distinguishes page-load timeouts from other navigation failures
func (s *BrowserSession) fetchError(ctx context.Context, url string, err error) error {
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return crawlerrors.NewTimeout(url, s.opts.PageLoadTimeout, err)
	}
	return crawlerrors.NewNetwork(url, "navigation failed", err)
}

// Close closes the browser and removes the launched process; safe to call more than once
func (s *BrowserSession) Close() error {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.closeErr = err
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.logger.Info().Msg("Browser session closed")
	})
	return s.closeErr
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
