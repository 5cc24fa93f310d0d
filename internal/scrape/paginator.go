package scrape

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JonOlav95/arbeidsplassen-scraper/internal/fetcher"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/metrics"
)

// adLinkPattern matches hrefs pointing at an ad detail page.
var adLinkPattern = regexp.MustCompile(`/stillinger/stilling/.+`)

const (
	listingPageSize = 100
	pageDelayLower  = 1.5
	pageDelayUpper  = 2.5
)

// SleepFunc suspends the caller for the given duration. Injected so tests
// run without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the production SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jitter returns a random duration between lower and upper seconds.
func Jitter(lower, upper float64) time.Duration {
	secs := lower + rand.Float64()*(upper-lower)
	return time.Duration(secs * float64(time.Second))
}

// StreamConfig bounds the listing pagination.
type StreamConfig struct {
	BaseURL  string
	Toggles  []string
	MaxPages int
}

// URLStream lazily enumerates ad URLs across (toggle, page) pairs. Each
// Next call performs at most one listing fetch plus the documented side
// effects: the jittered inter-page sleep and the Referer rewrite on the
// shared header context.
type URLStream struct {
	cfg     StreamConfig
	fetch   Fetcher
	headers fetcher.Headers
	logger  *zap.Logger
	sleep   SleepFunc

	toggleIdx int
	page      int
	pending   []string
}

// NewURLStream builds a stream over cfg.Toggles.
func NewURLStream(cfg StreamConfig, f Fetcher, h fetcher.Headers, logger *zap.Logger) *URLStream {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &URLStream{
		cfg:     cfg,
		fetch:   f,
		headers: h,
		logger:  logger,
		sleep:   SleepContext,
	}
}

// SetSleep overrides the inter-page sleep, mainly for tests.
func (s *URLStream) SetSleep(fn SleepFunc) {
	s.sleep = fn
}

// Next returns the next ad URL, or false once every toggle is exhausted.
// A failed listing page is skipped and still counts against the page
// ceiling; a terminal 400 or a page without ad links ends the current
// toggle.
func (s *URLStream) Next(ctx context.Context) (string, bool) {
	for {
		if len(s.pending) > 0 {
			next := s.pending[0]
			s.pending = s.pending[1:]
			return next, true
		}
		if ctx.Err() != nil || s.toggleIdx >= len(s.cfg.Toggles) {
			return "", false
		}
		if s.page >= s.cfg.MaxPages {
			s.finishToggle()
			continue
		}

		toggle := s.cfg.Toggles[s.toggleIdx]
		if s.page == 0 {
			s.logger.Info("Scraping arbeidsplassen", zap.String("toggle", toggle))
		}
		s.logger.Info("Scraping listing page",
			zap.String("toggle", toggle),
			zap.Int("page", s.page+1),
		)

		if err := s.sleep(ctx, Jitter(pageDelayLower, pageDelayUpper)); err != nil {
			return "", false
		}

		listingURL := s.listingURL(toggle)
		page, err := s.fetch.Fetch(ctx, listingURL, s.headers)
		if err != nil {
			code, isStatus := fetcher.StatusCode(err)
			switch {
			case isStatus && code == http.StatusBadRequest:
				// Out-of-range offset: the authoritative no-more-pages signal.
				s.logger.Info("Pagination exhausted for toggle",
					zap.String("toggle", toggle),
					zap.Int("page", s.page+1),
				)
				s.finishToggle()
			case isStatus:
				// 403/429 here usually means a bot block, not end of data.
				s.logger.Warn("Unexpected status on listing page",
					zap.String("url", listingURL),
					zap.Int("status_code", code),
				)
				s.page++
			default:
				s.logger.Error("Listing page fetch failed",
					zap.String("url", listingURL),
					zap.Error(err),
				)
				s.page++
			}
			continue
		}

		s.headers.SetReferer(listingURL)
		metrics.TotalListingPages.Inc()

		adURLs := extractAdURLs(page.Body, s.cfg.BaseURL)
		if len(adURLs) == 0 {
			s.logger.Info("No ads on page", zap.String("toggle", toggle), zap.Int("page", s.page+1))
			s.finishToggle()
			continue
		}
		s.pending = adURLs
		s.page++
	}
}

func (s *URLStream) finishToggle() {
	s.logger.Info("Finished toggle", zap.String("toggle", s.cfg.Toggles[s.toggleIdx]))
	s.toggleIdx++
	s.page = 0
}

func (s *URLStream) listingURL(toggle string) string {
	if s.page == 0 {
		return fmt.Sprintf("%s/stillinger?size=%d&%s&v=2", s.cfg.BaseURL, listingPageSize, toggle)
	}
	return fmt.Sprintf("%s/stillinger?from=%d&size=%d&%s&v=2",
		s.cfg.BaseURL, s.page*listingPageSize, listingPageSize, toggle)
}

// extractAdURLs collects anchors matching the ad detail path pattern and
// qualifies them with the base URL.
func extractAdURLs(body []byte, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var urls []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if adLinkPattern.MatchString(href) {
			urls = append(urls, baseURL+href)
		}
	})
	return urls
}
