package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oddsmith/playerident/internal/domain/sighting"
)

// rowKey identifies one tracking row: same player, same site, same context.
type rowKey struct {
	site    string
	team    string
	fixture string
}

type trackingRow struct {
	sighting.Sighting
	firstSeen   time.Time
	occurrences int64
}

// SightingRepository is an in-memory sighting.Repository, used by tests and
// local runs without Postgres.
type SightingRepository struct {
	mu   sync.RWMutex
	rows map[string]map[rowKey]*trackingRow

	// failUpserts makes the next n Upsert calls return failErr.
	failUpserts int
	failErr     error
}

var _ sighting.Repository = (*SightingRepository)(nil)

func NewSightingRepository() *SightingRepository {
	return &SightingRepository{rows: make(map[string]map[rowKey]*trackingRow)}
}

// FailNextUpserts makes the next n Upsert calls return err.
func (r *SightingRepository) FailNextUpserts(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failUpserts = n
	r.failErr = err
}

func (r *SightingRepository) Upsert(_ context.Context, s sighting.Sighting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failUpserts > 0 {
		r.failUpserts--
		return r.failErr
	}

	key := rowKeyOf(s)
	byKey, ok := r.rows[s.PlayerKey]
	if !ok {
		byKey = make(map[rowKey]*trackingRow)
		r.rows[s.PlayerKey] = byKey
	}

	existing, ok := byKey[key]
	if !ok {
		byKey[key] = &trackingRow{Sighting: s, firstSeen: s.SeenAt, occurrences: 1}
		return nil
	}

	existing.occurrences++
	existing.RawName = s.RawName
	if s.SeenAt.After(existing.SeenAt) {
		existing.SeenAt = s.SeenAt
	}
	if existing.MatchID == nil {
		existing.MatchID = s.MatchID
	}
	return nil
}

func (r *SightingRepository) Teams(_ context.Context, playerKey string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return teamsOf(r.rows[playerKey]), nil
}

func (r *SightingRepository) Fixtures(_ context.Context, playerKey string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]struct{}{}
	var out []string
	for _, tr := range r.rows[playerKey] {
		if tr.Fixture == nil {
			continue
		}
		if _, ok := seen[*tr.Fixture]; ok {
			continue
		}
		seen[*tr.Fixture] = struct{}{}
		out = append(out, *tr.Fixture)
	}
	sort.Strings(out)
	return out, nil
}

func (r *SightingRepository) AllKeys(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.rows))
	for key := range r.rows {
		out = append(out, key)
	}
	sort.Strings(out)
	return out, nil
}

func (r *SightingRepository) Stats(_ context.Context, playerKey string) (sighting.Stats, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byKey := r.rows[playerKey]
	if len(byKey) == 0 {
		return sighting.Stats{}, false, nil
	}
	return statsOf(playerKey, byKey), true, nil
}

func (r *SightingRepository) AllStats(_ context.Context) ([]sighting.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]sighting.Stats, 0, len(r.rows))
	for key, byKey := range r.rows {
		if len(byKey) == 0 {
			continue
		}
		out = append(out, statsOf(key, byKey))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].PlayerKey < out[b].PlayerKey })
	return out, nil
}

func (r *SightingRepository) RawNamesBySite(_ context.Context, playerKey string) (map[string][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[string][]string{}
	for _, tr := range r.rows[playerKey] {
		names := out[tr.SiteName]
		if !containsString(names, tr.RawName) {
			out[tr.SiteName] = append(names, tr.RawName)
		}
	}
	for site := range out {
		sort.Strings(out[site])
	}
	return out, nil
}

func (r *SightingRepository) TeamsByKey(_ context.Context) (map[string][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.rows))
	for key, byKey := range r.rows {
		if teams := teamsOf(byKey); len(teams) > 0 {
			out[key] = teams
		}
	}
	return out, nil
}

func (r *SightingRepository) MergeKeys(_ context.Context, fromKey, toKey string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fromRows := r.rows[fromKey]
	if len(fromRows) == 0 {
		delete(r.rows, fromKey)
		return 0, nil
	}

	toRows, ok := r.rows[toKey]
	if !ok {
		toRows = make(map[rowKey]*trackingRow)
		r.rows[toKey] = toRows
	}

	var moved int64
	for key, tr := range fromRows {
		moved++
		tr.PlayerKey = toKey
		existing, ok := toRows[key]
		if !ok {
			toRows[key] = tr
			continue
		}
		existing.occurrences += tr.occurrences
		if tr.SeenAt.After(existing.SeenAt) {
			existing.SeenAt = tr.SeenAt
		}
		if tr.firstSeen.Before(existing.firstSeen) {
			existing.firstSeen = tr.firstSeen
		}
		if existing.MatchID == nil {
			existing.MatchID = tr.MatchID
		}
	}
	delete(r.rows, fromKey)
	return moved, nil
}

func (r *SightingRepository) PurgeContextFree(_ context.Context, dryRun bool) (sighting.PurgeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := sighting.PurgeResult{DryRun: dryRun}
	for key, byKey := range r.rows {
		hasContext := false
		for _, tr := range byKey {
			if tr.HasContext() {
				hasContext = true
				break
			}
		}
		if hasContext {
			continue
		}
		result.PlayersRemoved++
		result.RowsRemoved += int64(len(byKey))
		if !dryRun {
			delete(r.rows, key)
		}
	}
	return result, nil
}

func (r *SightingRepository) Totals(_ context.Context) (sighting.Totals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var totals sighting.Totals
	for _, byKey := range r.rows {
		if len(byKey) == 0 {
			continue
		}
		totals.Players++
		totals.Rows += int64(len(byKey))
	}
	return totals, nil
}

func rowKeyOf(s sighting.Sighting) rowKey {
	key := rowKey{site: s.SiteName}
	if s.TeamName != nil {
		key.team = *s.TeamName
	}
	if s.Fixture != nil {
		key.fixture = *s.Fixture
	}
	return key
}

func teamsOf(byKey map[rowKey]*trackingRow) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, tr := range byKey {
		if tr.TeamName == nil {
			continue
		}
		if _, ok := seen[*tr.TeamName]; ok {
			continue
		}
		seen[*tr.TeamName] = struct{}{}
		out = append(out, *tr.TeamName)
	}
	sort.Strings(out)
	return out
}

func statsOf(playerKey string, byKey map[rowKey]*trackingRow) sighting.Stats {
	stats := sighting.Stats{PlayerKey: playerKey}
	for _, tr := range byKey {
		stats.OccurrenceCount += tr.occurrences
		if stats.FirstSeen.IsZero() || tr.firstSeen.Before(stats.FirstSeen) {
			stats.FirstSeen = tr.firstSeen
		}
		if tr.SeenAt.After(stats.LastSeen) {
			stats.LastSeen = tr.SeenAt
		}
	}
	return stats
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
