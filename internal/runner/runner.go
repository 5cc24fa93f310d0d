// Package runner drives a complete scrape run: toggles in, dataset rows
// out.
package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JonOlav95/arbeidsplassen-scraper/internal/fetcher"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/metrics"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/scrape"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/store"
)

// Config captures the run-level knobs.
type Config struct {
	FullScrape              bool
	BaseURL                 string
	IgnorePreviouslyScraped bool
	BufferSize              int
	AdDelayLower            float64
	AdDelayUpper            float64
	StoreHTML               bool
	MaxPages                int
	HistoryFiles            int
}

// Runner glues the URL stream, the deduplicator, the extractor and the
// buffered store into one sequential run.
type Runner struct {
	cfg    Config
	fetch  scrape.Fetcher
	store  *store.CSVStore
	logger *zap.Logger
	sleep  scrape.SleepFunc
	now    func() time.Time
}

// New builds a Runner.
func New(cfg Config, f scrape.Fetcher, st *store.CSVStore, logger *zap.Logger) *Runner {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.HistoryFiles <= 0 {
		cfg.HistoryFiles = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		fetch:  f,
		store:  st,
		logger: logger,
		sleep:  scrape.SleepContext,
		now:    time.Now,
	}
}

// WithSleep overrides the inter-ad sleep, mainly for tests.
func (r *Runner) WithSleep(fn scrape.SleepFunc) *Runner {
	r.sleep = fn
	return r
}

// WithClock overrides the wall clock, mainly for tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run executes one scrape. Per-item failures are logged and skipped; only
// toggle-discovery failure, a UUID invariant violation, or a flush error
// abort the run. Buffered records are flushed at the size threshold and
// unconditionally at termination.
func (r *Runner) Run(ctx context.Context) error {
	headers := fetcher.RandomHeaders()

	var (
		toggles []string
		err     error
	)
	if r.cfg.FullScrape {
		toggles, err = scrape.DiscoverToggles(ctx, r.fetch, r.cfg.BaseURL, headers, r.logger)
		if err != nil {
			return err
		}
	} else {
		toggles = scrape.DailyToggles()
	}

	var seed []string
	if r.cfg.IgnorePreviouslyScraped {
		seed, err = r.store.ReplayUUIDs(r.cfg.HistoryFiles)
		if err != nil {
			return fmt.Errorf("seed deduplicator: %w", err)
		}
	}
	dedup := scrape.NewDeduplicator(seed)
	r.logger.Info("Seeded deduplicator", zap.Int("uuids", dedup.Len()))

	stream := scrape.NewURLStream(scrape.StreamConfig{
		BaseURL:  r.cfg.BaseURL,
		Toggles:  toggles,
		MaxPages: r.cfg.MaxPages,
	}, r.fetch, headers, r.logger)
	stream.SetSleep(r.sleep)

	extractor := scrape.NewExtractor(r.fetch, scrape.DefaultSelectors(), r.cfg.StoreHTML, r.logger)

	day := r.now().Format("2006_01_02")
	var buffer []scrape.Record

	for {
		adURL, ok := stream.Next(ctx)
		if !ok {
			break
		}

		id, err := scrape.ExtractUUID(adURL)
		if err != nil {
			// Accepted URLs always embed a UUID; anything else is a bug.
			return err
		}
		if !dedup.IsNew(id) {
			r.logger.Info("Already scraped", zap.String("url", adURL))
			metrics.TotalDuplicatesSkipped.Inc()
			continue
		}
		// Mark before fetching so a failed ad is not retried within the run.
		dedup.MarkSeen(id)

		rec, err := extractor.Extract(ctx, adURL, id, headers)
		if err != nil {
			r.logger.Error("Ad extraction failed", zap.String("url", adURL), zap.Error(err))
			continue
		}
		buffer = append(buffer, rec)

		if err := r.sleep(ctx, scrape.Jitter(r.cfg.AdDelayLower, r.cfg.AdDelayUpper)); err != nil {
			break
		}

		if len(buffer) >= r.cfg.BufferSize {
			if err := r.flush(day, buffer); err != nil {
				return err
			}
			buffer = nil
		}
	}

	// Records already extracted are never dropped, cancellation included.
	if len(buffer) > 0 {
		if err := r.flush(day, buffer); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (r *Runner) flush(day string, buffer []scrape.Record) error {
	normalized := scrape.NormalizeRecords(buffer)
	if err := r.store.Append(day, normalized); err != nil {
		return fmt.Errorf("flush %d records: %w", len(buffer), err)
	}
	return nil
}
