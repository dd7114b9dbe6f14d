package crawler

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"sjsage522/vehiclecrawler/helpers"
	"sjsage522/vehiclecrawler/logger"
	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"
	"sjsage522/vehiclecrawler/services/cache"
)

// HTTPSession fetches pages with plain HTTP requests and browser-like headers.
// It does not execute scripts, so it only suits pages served without a challenge.
type HTTPSession struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPSession creates an HTTP session with a per-page timeout
func NewHTTPSession(timeout time.Duration) *HTTPSession {
	return &HTTPSession{
		client:  helpers.NewHTTPClient(timeout),
		timeout: timeout,
	}
}

// Fetch retrieves a page and converts its body to UTF-8
func (s *HTTPSession) Fetch(ctx context.Context, url string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reader, err := helpers.FetchWithRandomHeaders(fetchCtx, s.client, url)
	if err != nil {
		return "", classifyFetchError(url, s.timeout, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", crawlerrors.NewNetwork(url, "failed to read page", err)
	}

	html := string(body)
	if marker, ok := DetectChallenge(html); ok {
		return "", crawlerrors.NewChallenge(url, marker)
	}
	return html, nil
}

// Close releases idle connections
func (s *HTTPSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// classifyFetchError maps transport errors onto the crawler error taxonomy
func classifyFetchError(url string, timeout time.Duration, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return crawlerrors.NewTimeout(url, timeout, err)
	}
	return crawlerrors.NewNetwork(url, "failed to fetch page", err)
}

// CachedSession serves recently fetched pages from the cache service
type CachedSession struct {
	next   Session
	cache  cache.CacheService
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedSession wraps next with a page cache
func NewCachedSession(next Session, cacheSvc cache.CacheService, ttl time.Duration, log *logger.Logger) *CachedSession {
	return &CachedSession{
		next:   next,
		cache:  cacheSvc,
		ttl:    ttl,
		logger: log,
	}
}

// Fetch returns the cached page when present, otherwise fetches and stores it
func (s *CachedSession) Fetch(ctx context.Context, url string) (string, error) {
	key := PageCacheKey(url)
	if data, err := s.cache.Get(key); err == nil {
		s.logger.Debug().Str("url", url).Msg("Page served from cache")
		return string(data), nil
	}

	html, err := s.next.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(key, []byte(html), s.ttl); err != nil {
		s.logger.Warn().Err(crawlerrors.NewCache(key, "failed to store page", err)).Msg("Page cache write failed")
	}
	return html, nil
}

// Close closes the wrapped session
func (s *CachedSession) Close() error {
	return s.next.Close()
}

// PageCacheKey derives a memcache-safe key from a page URL
func PageCacheKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return "vehicle:page:" + hex.EncodeToString(sum[:])
}
