package persist

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/query"
)

// DefaultMaxAge is how long a persisted entry stays restorable.
const DefaultMaxAge = 7 * 24 * time.Hour

// Snapshot is the on-storage envelope. Buster is the cache schema
// version: any mismatch discards the whole snapshot rather than trying
// to migrate stale shapes.
type Snapshot struct {
	Buster  string            `json:"buster"`
	SavedAt time.Time         `json:"savedAt"`
	Entries []query.EntryInfo `json:"entries"`
}

// Encode builds the storage payload from cache entries, applying the
// allowlist and the sanitizer. Data is JSON-roundtripped so the
// sanitizer sees plain maps regardless of the in-memory type.
func Encode(entries []query.EntryInfo, buster string, now time.Time) ([]byte, error) {
	kept := make([]query.EntryInfo, 0, len(entries))
	for _, e := range entries {
		if !ShouldPersist(e.Key) {
			continue
		}
		generic, err := toGeneric(e.Data)
		if err != nil {
			return nil, fmt.Errorf("persist: encode entry %s: %w", e.Key.Canonical(), err)
		}
		kept = append(kept, query.EntryInfo{
			Key:       e.Key,
			Data:      Sanitize(generic),
			FetchedAt: e.FetchedAt,
		})
	}
	return json.Marshal(Snapshot{Buster: buster, SavedAt: now, Entries: kept})
}

// Decode parses a storage payload. A buster mismatch discards
// everything; entries older than maxAge are pruned individually.
func Decode(payload []byte, buster string, maxAge time.Duration, now time.Time) ([]query.EntryInfo, error) {
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("persist: decode snapshot: %w", err)
	}
	if snap.Buster != buster {
		return nil, nil
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	kept := make([]query.EntryInfo, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		if now.Sub(e.FetchedAt) > maxAge {
			continue
		}
		if !ShouldPersist(e.Key) {
			continue
		}
		kept = append(kept, e)
	}
	return kept, nil
}

func toGeneric(data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}
