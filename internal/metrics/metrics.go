// Package metrics exposes Prometheus collectors for the scraper.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TotalRequests tracks the number of HTTP requests dispatched, retries included.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_requests_total",
		Help: "The total number of HTTP requests sent.",
	})
	// TotalRequestErrors tracks the number of requests that resulted in an error.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_request_errors_total",
		Help: "The total number of failed HTTP requests.",
	})
	// TotalListingPages tracks the number of listing pages processed.
	TotalListingPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_listing_pages_total",
		Help: "The total number of search-result pages parsed.",
	})
	// TotalAdsScraped tracks the number of ad pages successfully extracted.
	TotalAdsScraped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_ads_scraped_total",
		Help: "The total number of ads successfully extracted.",
	})
	// TotalDuplicatesSkipped tracks ads skipped because their UUID was already seen.
	TotalDuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_duplicates_skipped_total",
		Help: "The total number of ads skipped by the deduplicator.",
	})
	// TotalRowsFlushed tracks normalized records written to the dataset.
	TotalRowsFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_rows_flushed_total",
		Help: "The total number of records flushed to the dataset files.",
	})
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
