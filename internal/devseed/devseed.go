// Package devseed loads JSON seed files used to pre-populate mock stores
// for offline development and the sandbox server.
package devseed

import (
	"encoding/json"
	"fmt"
	"os"
)

// BaseSeedEntry pre-populates one record set.
type BaseSeedEntry struct {
	Base  string           `json:"base"`
	Items []map[string]any `json:"items"`
}

// LoadBaseSeed reads a seed file: a JSON array of {base, items} entries.
func LoadBaseSeed(path string) ([]BaseSeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	var entries []BaseSeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("devseed: parse %s: %w", path, err)
	}
	for i, e := range entries {
		if e.Base == "" {
			return nil, fmt.Errorf("devseed: entry %d missing base name", i)
		}
	}
	return entries, nil
}
