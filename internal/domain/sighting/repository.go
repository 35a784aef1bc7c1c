package sighting

import "context"

// Repository describes sighting persistence needs from use cases.
//
// Upsert must be atomic per call: at most one live row exists per
// (player_key, site_name, team_name, fixture) tuple, re-observation updates
// seen_at and raw_name, and a known match_id is never regressed to null.
type Repository interface {
	Upsert(ctx context.Context, s Sighting) error
	Teams(ctx context.Context, playerKey string) ([]string, error)
	Fixtures(ctx context.Context, playerKey string) ([]string, error)
	AllKeys(ctx context.Context) ([]string, error)
	Stats(ctx context.Context, playerKey string) (Stats, bool, error)
	AllStats(ctx context.Context) ([]Stats, error)
	RawNamesBySite(ctx context.Context, playerKey string) (map[string][]string, error)

	// TeamsByKey preloads every key's distinct team set in one pass, for
	// the candidate scan.
	TeamsByKey(ctx context.Context) (map[string][]string, error)

	// MergeKeys re-keys fromKey's rows (and stats) into toKey, merging on
	// collision. Returns the number of rows moved.
	MergeKeys(ctx context.Context, fromKey, toKey string) (int64, error)

	PurgeContextFree(ctx context.Context, dryRun bool) (PurgeResult, error)
	Totals(ctx context.Context) (Totals, error)
}
