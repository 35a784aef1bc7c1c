package mapping

import (
	"fmt"
	"strings"
	"time"
)

// Mapping records an accepted identity merge: every sighting of VariantKey
// resolves to PreferredName. A preferred name may map to itself so that
// resolution is idempotent.
type Mapping struct {
	VariantKey    string
	PreferredName string
	CreatedAt     time.Time
}

func (m Mapping) Validate() error {
	if strings.TrimSpace(m.VariantKey) == "" {
		return fmt.Errorf("mapping variant key is required")
	}
	if strings.TrimSpace(m.PreferredName) == "" {
		return fmt.Errorf("mapping preferred name is required")
	}
	return nil
}

// SkippedPair is a permanent operator rejection. Keys are held in canonical
// order so lookup is order-independent.
type SkippedPair struct {
	Key1      string    `json:"key_1"`
	Key2      string    `json:"key_2"`
	SkippedAt time.Time `json:"skipped_at"`
}

// PairKey returns the two keys in canonical (lexicographic) order.
func PairKey(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Totals are row counts for the mapping tables.
type Totals struct {
	Mappings     int64 `json:"mappings"`
	SkippedPairs int64 `json:"skipped_pairs"`
}
