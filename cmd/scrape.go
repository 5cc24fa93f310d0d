package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JonOlav95/arbeidsplassen-scraper/internal/config"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/fetcher"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/logging"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/metrics"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/runner"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/store"
)

// newScrapeCmd creates and configures the 'scrape' subcommand, which runs
// one full pass of the crawl pipeline.
func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Runs one scrape of arbeidsplassen.nav.no",
		Long: `Enumerates the configured filter toggles, pages through every
search result, scrapes each previously unseen ad, and appends the
normalized records to the day's CSV dataset file.`,
		RunE: runScrapeCommand,
	}
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}

	day := time.Now().Format("2006_01_02")
	logPath := filepath.Join(cfg.Scraper.LogFolder, fmt.Sprintf("arbeidsplassen_%s.log", day))
	logger, err := logging.New(logPath, cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	client := fetcher.New(fetcher.Config{
		Attempts:   cfg.HTTP.RetryAttempts,
		RetryDelay: cfg.RetryDelay(),
		Timeout:    cfg.Timeout(),
	}, logger)

	st, err := store.New(cfg.Scraper.ScrapeFolder, logger)
	if err != nil {
		return fmt.Errorf("init dataset store: %w", err)
	}

	run := runner.New(runner.Config{
		FullScrape:              cfg.Scraper.FullScrape,
		BaseURL:                 cfg.Scraper.BaseURL,
		IgnorePreviouslyScraped: cfg.Scraper.IgnorePreviouslyScraped,
		BufferSize:              cfg.Scraper.BufferSize,
		AdDelayLower:            cfg.Scraper.TimeSleepLower,
		AdDelayUpper:            cfg.Scraper.TimeSleepUpper,
		StoreHTML:               cfg.Scraper.StoreHTML,
		MaxPages:                cfg.Scraper.MaxPages,
		HistoryFiles:            cfg.Scraper.HistoryFiles,
	}, client, st, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run scrape: %w", err)
	}
	logger.Info("Scrape finished")
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("Metrics endpoint stopped", zap.Error(err))
	}
}
