package runner

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonOlav95/arbeidsplassen-scraper/internal/fetcher"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/scrape"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/store"
)

const (
	baseURL = "https://arbeidsplassen.test"
	toggle  = "published=now%2Fd"
	uuidU1  = "11111111-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	uuidU2  = "22222222-bbbb-4bbb-9bbb-bbbbbbbbbbbb"
)

type stubFetcher struct {
	pages map[string]*fetcher.Page
	errs  map[string]error
	calls []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string, _ fetcher.Headers) (*fetcher.Page, error) {
	s.calls = append(s.calls, url)
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	if p, ok := s.pages[url]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("fetch %s after 3 attempts: %w", url, errors.New("connection refused"))
}

func page(url, body string) *fetcher.Page {
	return &fetcher.Page{URL: url, StatusCode: 200, Body: []byte(body)}
}

func adPage(title string) string {
	return fmt.Sprintf(`<html><body><div id="main-content"><article><div><h1>%s</h1></div></article></div></body></html>`, title)
}

func adURL(id string) string {
	return baseURL + "/stillinger/stilling/" + id
}

func listingBody(ids ...string) string {
	body := "<html><body>"
	for _, id := range ids {
		body += fmt.Sprintf(`<a href="/stillinger/stilling/%s">Ad</a>`, id)
	}
	return body + "</body></html>"
}

func noSleep(context.Context, time.Duration) error { return nil }

func fixedClock() time.Time {
	return time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
}

func testRunner(t *testing.T, cfg Config, f scrape.Fetcher, dir string) (*Runner, *store.CSVStore) {
	t.Helper()
	st, err := store.New(dir, nil)
	require.NoError(t, err)
	r := New(cfg, f, st, nil).WithSleep(noSleep).WithClock(fixedClock)
	return r, st
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func column(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}

// TestRunSkipsPreviouslyScraped covers the end-to-end incremental scenario:
// two ads on the first listing page, an empty second page, and U1 already
// present in the dataset history.
func TestRunSkipsPreviouslyScraped(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{pages: map[string]*fetcher.Page{
		fmt.Sprintf("%s/stillinger?size=100&%s&v=2", baseURL, toggle):          page("", listingBody(uuidU1, uuidU2)),
		fmt.Sprintf("%s/stillinger?from=100&size=100&%s&v=2", baseURL, toggle): page("", listingBody()),
		adURL(uuidU2): page("", adPage("Ny stilling")),
	}}

	dir := t.TempDir()
	cfg := Config{
		BaseURL:                 baseURL,
		IgnorePreviouslyScraped: true,
		BufferSize:              10,
	}
	r, st := testRunner(t, cfg, f, dir)

	// Prior run's dataset file seeds the deduplicator with U1.
	require.NoError(t, st.Append("2024_01_01", []scrape.Record{{scrape.FieldUUID: uuidU1}}))

	require.NoError(t, r.Run(context.Background()))

	assert.NotContains(t, f.calls, adURL(uuidU1), "U1 must not be fetched")
	assert.Contains(t, f.calls, adURL(uuidU2))

	rows := readRows(t, st.FilePath("2024_01_02"))
	require.Len(t, rows, 2, "header plus exactly one record")
	idx := column(rows[0], scrape.FieldUUID)
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, uuidU2, rows[1][idx])
}

func TestRunFlushesAtBufferThreshold(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{pages: map[string]*fetcher.Page{
		fmt.Sprintf("%s/stillinger?size=100&%s&v=2", baseURL, toggle):          page("", listingBody(uuidU1, uuidU2)),
		fmt.Sprintf("%s/stillinger?from=100&size=100&%s&v=2", baseURL, toggle): page("", listingBody()),
		adURL(uuidU1): page("", adPage("Første")),
		adURL(uuidU2): page("", adPage("Andre")),
	}}

	dir := t.TempDir()
	cfg := Config{
		BaseURL:    baseURL,
		BufferSize: 1,
	}
	r, st := testRunner(t, cfg, f, dir)

	require.NoError(t, r.Run(context.Background()))

	rows := readRows(t, st.FilePath("2024_01_02"))
	require.Len(t, rows, 3, "both flushed batches present")
	idx := column(rows[0], scrape.FieldUUID)
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, uuidU1, rows[1][idx])
	assert.Equal(t, uuidU2, rows[2][idx])
}

// TestRunFlushesFinalPartialBuffer pins the remainder flush: a single record
// below the threshold still reaches the dataset at termination.
func TestRunFlushesFinalPartialBuffer(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{pages: map[string]*fetcher.Page{
		fmt.Sprintf("%s/stillinger?size=100&%s&v=2", baseURL, toggle):          page("", listingBody(uuidU1)),
		fmt.Sprintf("%s/stillinger?from=100&size=100&%s&v=2", baseURL, toggle): page("", listingBody()),
		adURL(uuidU1): page("", adPage("Eneste")),
	}}

	dir := t.TempDir()
	cfg := Config{
		BaseURL:    baseURL,
		BufferSize: 100,
	}
	r, st := testRunner(t, cfg, f, dir)

	require.NoError(t, r.Run(context.Background()))

	rows := readRows(t, st.FilePath("2024_01_02"))
	require.Len(t, rows, 2)
}

func TestRunFailedAdIsSkippedNotFatal(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{
		pages: map[string]*fetcher.Page{
			fmt.Sprintf("%s/stillinger?size=100&%s&v=2", baseURL, toggle):          page("", listingBody(uuidU1, uuidU2)),
			fmt.Sprintf("%s/stillinger?from=100&size=100&%s&v=2", baseURL, toggle): page("", listingBody()),
			adURL(uuidU2): page("", adPage("Andre")),
		},
		errs: map[string]error{
			adURL(uuidU1): errors.New("connection reset"),
		},
	}

	dir := t.TempDir()
	r, st := testRunner(t, Config{BaseURL: baseURL, BufferSize: 10}, f, dir)

	require.NoError(t, r.Run(context.Background()))

	rows := readRows(t, st.FilePath("2024_01_02"))
	require.Len(t, rows, 2, "only the successful ad is persisted")
	idx := column(rows[0], scrape.FieldUUID)
	assert.Equal(t, uuidU2, rows[1][idx])
}

func TestRunToggleDiscoveryFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := &stubFetcher{errs: map[string]error{
		baseURL + "/stillinger": errors.New("connection refused"),
	}}

	dir := t.TempDir()
	r, _ := testRunner(t, Config{BaseURL: baseURL, FullScrape: true, BufferSize: 10}, f, dir)

	err := r.Run(context.Background())
	require.Error(t, err)
}
