package scrape

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JonOlav95/arbeidsplassen-scraper/internal/fetcher"
)

// DailyToggle selects only ads published today, the single partition used by
// incremental runs.
const DailyToggle = "published=now%2Fd"

// DailyToggles returns the fixed toggle list for incremental runs.
func DailyToggles() []string {
	return []string{DailyToggle}
}

// DiscoverToggles scrapes the site's filter controls for exhaustive runs.
// The site caps pagination at 100 pages of 100 ads, so a full scrape walks
// every filter partition instead of one giant result set. A fetch failure
// here is fatal for the run; there is no partial toggle list to fall back
// to.
func DiscoverToggles(ctx context.Context, f Fetcher, baseURL string, h fetcher.Headers, logger *zap.Logger) ([]string, error) {
	page, err := f.Fetch(ctx, baseURL+"/stillinger", h)
	if err != nil {
		return nil, fmt.Errorf("discover toggles: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse filter controls: %w", err)
	}

	var toggles []string
	doc.Find("input").Each(func(_ int, sel *goquery.Selection) {
		inputType, _ := sel.Attr("type")
		if inputType != "checkbox" && inputType != "radio" {
			return
		}
		name, _ := sel.Attr("name")
		if name == "" {
			return
		}
		value, _ := sel.Attr("value")
		toggle := name + "=" + value
		// The empty free-text query control is not a crawl partition.
		if toggle == "q=" {
			return
		}
		toggles = append(toggles, toggle)
	})

	logger.Info("Discovered filter toggles", zap.Int("count", len(toggles)))
	return toggles, nil
}
