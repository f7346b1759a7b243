package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/amishk599/jobenrich/internal/model"
)

// Provider batch ids look like "batch_abc123". Anything else could escape
// the batch file directory once it is used as a file name.
var batchIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func checkBatchID(batchID string) error {
	if !batchIDPattern.MatchString(batchID) {
		return fmt.Errorf("invalid batch id %q", batchID)
	}
	return nil
}

// listingsPath is the scraped snapshot kept next to the request file so a
// timed-out batch can be merged by a later resume.
func listingsPath(batchFilePath, batchID string) (string, error) {
	return artifactPath(batchFilePath, batchID, ".listings.json")
}

func resultsPath(batchFilePath, batchID string) (string, error) {
	return artifactPath(batchFilePath, batchID, ".results.jsonl")
}

func artifactPath(batchFilePath, batchID, suffix string) (string, error) {
	if err := checkBatchID(batchID); err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(batchFilePath), batchID+suffix), nil
}

func writeListings(path string, listings []model.Listing) error {
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("marshal listings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write listings snapshot: %w", err)
	}
	return nil
}

func readListings(path string) ([]model.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read listings snapshot: %w", err)
	}
	var listings []model.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("decode listings snapshot %s: %w", path, err)
	}
	return listings, nil
}
