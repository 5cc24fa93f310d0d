// Package fetcher implements the resilient HTTP GET used by every part of
// the crawl pipeline.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JonOlav95/arbeidsplassen-scraper/internal/metrics"
)

// Page is the result of a successful fetch.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// StatusError reports a terminal non-2xx HTTP status. The paginator relies
// on it to recognize the out-of-range-offset signal (4xx) that ends a
// toggle's pagination.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

// IsClientError reports whether err terminated with a 4xx status.
func IsClientError(err error) bool {
	code, ok := StatusCode(err)
	return ok && code >= 400 && code < 500
}

// StatusCode unwraps the terminal HTTP status from err, if there is one.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code, true
	}
	return 0, false
}

// Config controls retry behavior and the underlying transport.
type Config struct {
	// Attempts is the total number of tries per URL, first request included.
	Attempts int
	// RetryDelay is the fixed wait between attempts.
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Client performs GET requests with bounded retries. All error classes are
// retried uniformly; classification only affects logging. After the last
// attempt the caller receives (nil, err) and is expected to skip the item
// rather than abort the run.
type Client struct {
	cfg    Config
	base   *colly.Collector
	logger *zap.Logger
}

// New builds a Client backed by a base colly collector. Each fetch clones
// the collector so callbacks never leak between requests.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(colly.Async(false))
	base.AllowURLRevisit = true
	base.IgnoreRobotsTxt = true
	base.WithTransport(newHTTPTransport())
	base.SetRequestTimeout(cfg.Timeout)

	return &Client{
		cfg:    cfg,
		base:   base,
		logger: logger,
	}
}

// Fetch retrieves rawURL with the supplied headers. It retries transport
// failures and non-2xx statuses up to cfg.Attempts times with a fixed delay,
// then gives up with the last error.
func (c *Client) Fetch(ctx context.Context, rawURL string, h Headers) (*Page, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		metrics.TotalRequests.Inc()
		page, err := c.do(rawURL, h)
		if err == nil {
			return page, nil
		}
		metrics.TotalRequestErrors.Inc()
		c.logAttempt(rawURL, attempt, err)
		lastErr = err

		if attempt < c.cfg.Attempts {
			if err := sleepContext(ctx, c.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("fetch %s after %d attempts: %w", rawURL, c.cfg.Attempts, lastErr)
}

func (c *Client) do(rawURL string, h Headers) (*Page, error) {
	collector := c.base.Clone()

	var (
		page     *Page
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		for k, v := range h {
			r.Headers.Set(k, v)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = &StatusError{Code: r.StatusCode}
			return
		}
		fetchErr = err
	})

	// In sync mode Visit surfaces a non-2xx status as a bare status-text
	// error. The OnError callback has the typed error, so it wins.
	visitErr := collector.Visit(rawURL)
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if visitErr != nil {
		return nil, visitErr
	}
	if page == nil {
		return nil, errors.New("fetch produced no response")
	}
	return page, nil
}

// logAttempt classifies the failure for logging only; the retry decision is
// uniform across all error classes.
func (c *Client) logAttempt(rawURL string, attempt int, err error) {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500:
		c.logger.Error("Client error response",
			zap.String("url", rawURL),
			zap.Int("status_code", statusErr.Code),
			zap.Int("attempt", attempt),
		)
	case errors.As(err, &statusErr) && statusErr.Code >= 500 && statusErr.Code < 600:
		c.logger.Warn("Server error response",
			zap.String("url", rawURL),
			zap.Int("status_code", statusErr.Code),
			zap.Int("attempt", attempt),
		)
	default:
		c.logger.Warn("Request failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
