package scrape

import (
	"context"
	"sort"

	"github.com/JonOlav95/arbeidsplassen-scraper/internal/fetcher"
)

// Record is one scraped ad, mapping field names to values. Raw records hold
// serialized HTML fragments; normalized records hold plain text only.
type Record map[string]string

// Field names every record carries, plus the fixed extraction targets.
const (
	FieldURL        = "url"
	FieldScrapeTime = "scrape_time"
	FieldUUID       = "uuid"
	FieldHTML       = "html"

	FieldTitle         = "title"
	FieldCompany       = "company"
	FieldLocation      = "location"
	FieldJobContent    = "job_content"
	FieldEmployer      = "employer"
	FieldDeadline      = "deadline"
	FieldAbout         = "about"
	FieldContactPerson = "contact_person"
	FieldAdData        = "ad_data"
)

// Fetcher is the single error boundary the pipeline relies on; the paginator
// and the extractor both take it as an injected dependency.
type Fetcher interface {
	Fetch(ctx context.Context, url string, h fetcher.Headers) (*fetcher.Page, error)
}

var fieldOrder = []string{
	FieldURL, FieldScrapeTime, FieldUUID, FieldHTML,
	FieldTitle, FieldCompany, FieldLocation, FieldJobContent,
	FieldEmployer, FieldDeadline, FieldAbout, FieldContactPerson, FieldAdData,
}

var fieldRank = func() map[string]int {
	m := make(map[string]int, len(fieldOrder))
	for i, f := range fieldOrder {
		m[f] = i
	}
	return m
}()

// Keys returns the record's keys in a canonical order: the known fields
// first, anything else sorted. Map iteration order would otherwise make
// merge collisions and column layout nondeterministic.
func Keys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for _, f := range fieldOrder {
		if _, ok := rec[f]; ok {
			keys = append(keys, f)
		}
	}
	var rest []string
	for k := range rec {
		if _, ok := fieldRank[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
