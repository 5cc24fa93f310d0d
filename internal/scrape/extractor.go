package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"

	"github.com/JonOlav95/arbeidsplassen-scraper/internal/fetcher"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/metrics"
)

// Extractor scrapes a single ad page into a raw record of serialized HTML
// fragments. Reduction to plain text happens downstream in the normalizer.
type Extractor struct {
	fetch     Fetcher
	selectors []Selector
	storeHTML bool
	logger    *zap.Logger
	now       func() time.Time
}

// NewExtractor builds an Extractor over the given selector table.
func NewExtractor(f Fetcher, selectors []Selector, storeHTML bool, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		fetch:     f,
		selectors: selectors,
		storeHTML: storeHTML,
		logger:    logger,
		now:       time.Now,
	}
}

// Extract fetches url and evaluates every selector against the parsed
// document. A selector without a match yields an empty field; only a failed
// fetch or an unparseable page drops the ad.
func (e *Extractor) Extract(ctx context.Context, url, id string, h fetcher.Headers) (Record, error) {
	page, err := e.fetch.Fetch(ctx, url, h)
	if err != nil {
		return nil, err
	}

	doc, err := htmlquery.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse ad page %s: %w", url, err)
	}

	rec := Record{
		FieldURL:        url,
		FieldScrapeTime: e.now().Format("2006-01-02 15:04:05"),
		FieldUUID:       id,
	}
	if e.storeHTML {
		rec[FieldHTML] = string(page.Body)
	}

	var title string
	for _, sel := range e.selectors {
		node, err := htmlquery.Query(doc, sel.XPath)
		if err != nil {
			return nil, fmt.Errorf("selector %s: %w", sel.Field, err)
		}
		if node == nil {
			rec[sel.Field] = ""
			continue
		}
		rec[sel.Field] = htmlquery.OutputHTML(node, true)
		if sel.Field == FieldTitle {
			title = strings.TrimRightFunc(htmlquery.InnerText(node), unicode.IsSpace)
		}
	}

	if title != "" {
		e.logger.Info("Scraped ad", zap.String("title", title))
	}
	metrics.TotalAdsScraped.Inc()
	return rec, nil
}
