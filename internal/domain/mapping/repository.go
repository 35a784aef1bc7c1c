package mapping

import "context"

// Repository persists accepted mappings and skipped pairs.
type Repository interface {
	// Get returns the mapping for a variant key, if one exists.
	Get(ctx context.Context, variantKey string) (Mapping, bool, error)
	// All returns every mapping keyed by variant key.
	All(ctx context.Context) (map[string]string, error)
	// Upsert writes a mapping, replacing any previous preferred name.
	Upsert(ctx context.Context, m Mapping) error
	// AddIfAbsent writes a mapping only when the variant key is unmapped.
	// It reports whether the row was inserted.
	AddIfAbsent(ctx context.Context, m Mapping) (bool, error)
	// Delete removes the mapping for a variant key.
	Delete(ctx context.Context, variantKey string) error

	// IsSkipped reports whether the pair was rejected, in either order.
	IsSkipped(ctx context.Context, keyA, keyB string) (bool, error)
	// AddSkippedPair records a rejection. Inserting an already skipped
	// pair is a no-op; it reports whether the row was inserted.
	AddSkippedPair(ctx context.Context, p SkippedPair) (bool, error)
	// AllSkippedPairs returns every rejected pair in canonical order.
	AllSkippedPairs(ctx context.Context) ([]SkippedPair, error)
	// ClearSkippedPairs removes all rejections and returns the count.
	ClearSkippedPairs(ctx context.Context) (int64, error)

	Totals(ctx context.Context) (Totals, error)
}
