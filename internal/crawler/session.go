package crawler

import (
	"context"

	"sjsage522/vehiclecrawler/config"
	"sjsage522/vehiclecrawler/logger"
	"sjsage522/vehiclecrawler/services/cache"
)

// NewSessionOpener returns the opener for the configured fetch mode.
// When pageCache is non-nil every session is wrapped with the page cache.
func NewSessionOpener(cfg *config.Config, pageCache cache.CacheService, log *logger.Logger) SessionOpener {
	return func(ctx context.Context) (Session, error) {
		var session Session

		switch cfg.FetchMode {
		case config.FetchModeHTTP:
			session = NewHTTPSession(cfg.PageLoadTimeout)
		default:
			browser, err := OpenBrowserSession(ctx, BrowserOptions{
				Headless:        cfg.Headless,
				Bin:             cfg.ChromeBin,
				ControlURL:      cfg.ChromeControlURL,
				PageLoadTimeout: cfg.PageLoadTimeout,
				RenderWait:      cfg.RenderWait,
			}, log)
			if err != nil {
				return nil, err
			}
			session = browser
		}

		if pageCache != nil {
			session = NewCachedSession(session, pageCache, cfg.PageCacheTTL, log)
		}
		return session, nil
	}
}
