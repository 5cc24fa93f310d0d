// Package store persists normalized records to per-day CSV dataset files
// and replays recent files to seed deduplication.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/JonOlav95/arbeidsplassen-scraper/internal/metrics"
	"github.com/JonOlav95/arbeidsplassen-scraper/internal/scrape"
)

// dateToken is the YYYY_MM_DD fragment embedded in every dataset filename.
var dateToken = regexp.MustCompile(`\d{4}_\d{2}_\d{2}`)

// CSVStore writes one append-only dataset file per calendar day. A flush
// merges the new batch below any rows already in the same-day file, so a
// crash only ever loses the unflushed in-memory batch.
type CSVStore struct {
	dir    string
	logger *zap.Logger
}

// New creates the dataset directory if needed and returns a store rooted
// there.
func New(dir string, logger *zap.Logger) (*CSVStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("dataset directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create dataset dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVStore{dir: dir, logger: logger}, nil
}

// FilePath returns the dataset file for the given YYYY_MM_DD day key.
func (s *CSVStore) FilePath(day string) string {
	return filepath.Join(s.dir, fmt.Sprintf("arbeidsplassen_%s.csv", day))
}

// Append merges records below the existing rows of the day's file and
// rewrites it. The column set is the union of the existing header and every
// field in the batch; rows written earlier keep their position and order.
func (s *CSVStore) Append(day string, records []scrape.Record) error {
	if len(records) == 0 {
		return nil
	}
	path := s.FilePath(day)

	columns, rows, err := readDataset(path)
	if err != nil {
		return fmt.Errorf("read existing dataset %s: %w", path, err)
	}

	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	for _, rec := range records {
		for _, key := range scrape.Keys(rec) {
			if _, ok := known[key]; !ok {
				known[key] = struct{}{}
				columns = append(columns, key)
			}
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		// Earlier flushes may have fewer columns; pad to the union.
		for len(row) < len(columns) {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = rec[col]
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush dataset %s: %w", path, err)
	}

	metrics.TotalRowsFlushed.Add(float64(len(records)))
	s.logger.Info("Flushed records",
		zap.Int("count", len(records)),
		zap.String("file", path),
	)
	return nil
}

// ReplayUUIDs loads the uuid column of the nFiles most recent dataset files,
// ordered by the date token in their names. Files without a single data row
// are treated as corrupt and deleted. Re-running against the same history
// yields the same result.
func (s *CSVStore) ReplayUUIDs(nFiles int) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list dataset dir %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if dateToken.FindString(entry.Name()) == "" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		return dateToken.FindString(names[i]) < dateToken.FindString(names[j])
	})
	if nFiles > 0 && len(names) > nFiles {
		names = names[len(names)-nFiles:]
	}

	var uuids []string
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		header, rows, err := readDataset(path)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", path, err)
		}
		if len(rows) == 0 {
			s.logger.Warn("Removing empty dataset file", zap.String("file", path))
			if err := os.Remove(path); err != nil {
				return nil, fmt.Errorf("remove empty dataset %s: %w", path, err)
			}
			continue
		}
		idx := -1
		for i, col := range header {
			if col == scrape.FieldUUID {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		for _, row := range rows {
			if idx < len(row) && row[idx] != "" {
				uuids = append(uuids, row[idx])
			}
		}
	}
	return uuids, nil
}

// readDataset returns the header and data rows of a CSV file, tolerating
// ragged schemas. A missing file yields no header and no rows.
func readDataset(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}
