package scrape

// Deduplicator tracks ad UUIDs already processed, seeded from prior dataset
// files and grown monotonically during the run. It is never persisted; the
// dataset files themselves are the durable record.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator builds a Deduplicator from previously seen UUIDs.
func NewDeduplicator(seed []string) *Deduplicator {
	seen := make(map[string]struct{}, len(seed))
	for _, id := range seed {
		seen[id] = struct{}{}
	}
	return &Deduplicator{seen: seen}
}

// IsNew reports whether id has not been seen before.
func (d *Deduplicator) IsNew(id string) bool {
	_, ok := d.seen[id]
	return !ok
}

// MarkSeen records id. Callers mark before fetching so an ad is attempted at
// most once per run even if the outer loop revisits its listing page.
func (d *Deduplicator) MarkSeen(id string) {
	d.seen[id] = struct{}{}
}

// Len returns the number of tracked UUIDs.
func (d *Deduplicator) Len() int {
	return len(d.seen)
}
