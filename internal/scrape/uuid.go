package scrape

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// adUUIDPattern matches the v4 UUID embedded in every ad detail URL.
var adUUIDPattern = regexp.MustCompile(`[a-f0-9]{8}-[a-f0-9]{4}-4[a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}`)

// ExtractUUID pulls the ad identifier out of an accepted ad URL. Every
// accepted URL carries exactly one; a miss is an invariant violation the
// caller must surface, not a condition to skip silently.
func ExtractUUID(adURL string) (string, error) {
	id := adUUIDPattern.FindString(adURL)
	if id == "" {
		return "", fmt.Errorf("no ad uuid in url %q", adURL)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("malformed ad uuid %q: %w", id, err)
	}
	return id, nil
}
