// Package scrape implements the crawl pipeline for arbeidsplassen.nav.no:
// toggle discovery, listing pagination, deduplication, per-ad field
// extraction, and record normalization.
package scrape
