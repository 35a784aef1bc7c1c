package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oddsmith/playerident/internal/domain/sighting"
	qb "github.com/oddsmith/playerident/internal/platform/querybuilder"
)

// SightingRepository stores sightings and the per-player aggregate in
// Postgres. The sightings table is keyed by (player_key, site_name, team,
// fixture) so repeat observations collapse into one row.
type SightingRepository struct {
	db *sqlx.DB
}

var _ sighting.Repository = (*SightingRepository)(nil)

func NewSightingRepository(db *sqlx.DB) *SightingRepository {
	return &SightingRepository{db: db}
}

const upsertSightingQuery = `
INSERT INTO sightings (player_key, raw_name, site_name, match_id, team_name, fixture, first_seen, last_seen, occurrence_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7, 1)
ON CONFLICT (player_key, site_name, COALESCE(team_name, ''), COALESCE(fixture, ''))
DO UPDATE SET
	raw_name = excluded.raw_name,
	match_id = COALESCE(sightings.match_id, excluded.match_id),
	last_seen = GREATEST(sightings.last_seen, excluded.last_seen),
	occurrence_count = sightings.occurrence_count + 1`

const upsertStatsQuery = `
INSERT INTO player_stats (player_key, first_seen, last_seen, occurrence_count)
VALUES ($1, $2, $2, 1)
ON CONFLICT (player_key)
DO UPDATE SET
	first_seen = LEAST(player_stats.first_seen, excluded.first_seen),
	last_seen = GREATEST(player_stats.last_seen, excluded.last_seen),
	occurrence_count = player_stats.occurrence_count + 1`

func (r *SightingRepository) Upsert(ctx context.Context, s sighting.Sighting) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin upsert sighting: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, upsertSightingQuery,
		s.PlayerKey, s.RawName, s.SiteName,
		nullString(s.MatchID), nullString(s.TeamName), nullString(s.Fixture),
		s.SeenAt,
	); err != nil {
		return classify(fmt.Errorf("upsert sighting: %w", err))
	}

	if _, err := tx.ExecContext(ctx, upsertStatsQuery, s.PlayerKey, s.SeenAt); err != nil {
		return classify(fmt.Errorf("upsert player stats: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit upsert sighting: %w", err))
	}
	return nil
}

func (r *SightingRepository) Teams(ctx context.Context, playerKey string) ([]string, error) {
	query, args, err := qb.Select("team_name").Distinct().From("sightings").
		Where(
			qb.Eq("player_key", playerKey),
			qb.IsNotNull("team_name"),
		).
		OrderBy("team_name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var teams []string
	if err := r.db.SelectContext(ctx, &teams, query, args...); err != nil {
		return nil, classify(fmt.Errorf("select teams: %w", err))
	}
	return teams, nil
}

func (r *SightingRepository) Fixtures(ctx context.Context, playerKey string) ([]string, error) {
	query, args, err := qb.Select("fixture").Distinct().From("sightings").
		Where(
			qb.Eq("player_key", playerKey),
			qb.IsNotNull("fixture"),
		).
		OrderBy("fixture").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select fixtures query: %w", err)
	}

	var fixtures []string
	if err := r.db.SelectContext(ctx, &fixtures, query, args...); err != nil {
		return nil, classify(fmt.Errorf("select fixtures: %w", err))
	}
	return fixtures, nil
}

func (r *SightingRepository) AllKeys(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("player_key").Distinct().From("sightings").
		OrderBy("player_key").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select keys query: %w", err)
	}

	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, classify(fmt.Errorf("select player keys: %w", err))
	}
	return keys, nil
}

var statsSelectColumns = []string{
	"player_key",
	"first_seen",
	"last_seen",
	"occurrence_count",
}

func (r *SightingRepository) Stats(ctx context.Context, playerKey string) (sighting.Stats, bool, error) {
	query, args, err := qb.Select(statsSelectColumns...).From("player_stats").
		Where(qb.Eq("player_key", playerKey)).
		ToSQL()
	if err != nil {
		return sighting.Stats{}, false, fmt.Errorf("build select stats query: %w", err)
	}

	var row statsTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return sighting.Stats{}, false, nil
		}
		return sighting.Stats{}, false, classify(fmt.Errorf("select player stats: %w", err))
	}
	return statsFromRow(row), true, nil
}

func (r *SightingRepository) AllStats(ctx context.Context) ([]sighting.Stats, error) {
	query, args, err := qb.Select(statsSelectColumns...).From("player_stats").
		OrderBy("player_key").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select all stats query: %w", err)
	}

	var rows []statsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(fmt.Errorf("select all player stats: %w", err))
	}

	out := make([]sighting.Stats, 0, len(rows))
	for _, row := range rows {
		out = append(out, statsFromRow(row))
	}
	return out, nil
}

func (r *SightingRepository) RawNamesBySite(ctx context.Context, playerKey string) (map[string][]string, error) {
	query, args, err := qb.Select("site_name", "raw_name").Distinct().From("sightings").
		Where(qb.Eq("player_key", playerKey)).
		OrderBy("site_name", "raw_name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select raw names query: %w", err)
	}

	var rows []siteNameRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(fmt.Errorf("select raw names: %w", err))
	}

	out := make(map[string][]string, len(rows))
	for _, row := range rows {
		out[row.SiteName] = append(out[row.SiteName], row.RawName)
	}
	return out, nil
}

func (r *SightingRepository) TeamsByKey(ctx context.Context) (map[string][]string, error) {
	query, args, err := qb.Select("player_key", "team_name").Distinct().From("sightings").
		Where(qb.IsNotNull("team_name")).
		OrderBy("player_key", "team_name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams by key query: %w", err)
	}

	var rows []keyTeamRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(fmt.Errorf("select teams by key: %w", err))
	}

	out := make(map[string][]string)
	for _, row := range rows {
		out[row.PlayerKey] = append(out[row.PlayerKey], row.TeamName)
	}
	return out, nil
}

const mergeSightingsQuery = `
INSERT INTO sightings (player_key, raw_name, site_name, match_id, team_name, fixture, first_seen, last_seen, occurrence_count)
SELECT $2, raw_name, site_name, match_id, team_name, fixture, first_seen, last_seen, occurrence_count
FROM sightings
WHERE player_key = $1
ON CONFLICT (player_key, site_name, COALESCE(team_name, ''), COALESCE(fixture, ''))
DO UPDATE SET
	match_id = COALESCE(sightings.match_id, excluded.match_id),
	first_seen = LEAST(sightings.first_seen, excluded.first_seen),
	last_seen = GREATEST(sightings.last_seen, excluded.last_seen),
	occurrence_count = sightings.occurrence_count + excluded.occurrence_count`

const mergeStatsQuery = `
INSERT INTO player_stats (player_key, first_seen, last_seen, occurrence_count)
SELECT $2, first_seen, last_seen, occurrence_count
FROM player_stats
WHERE player_key = $1
ON CONFLICT (player_key)
DO UPDATE SET
	first_seen = LEAST(player_stats.first_seen, excluded.first_seen),
	last_seen = GREATEST(player_stats.last_seen, excluded.last_seen),
	occurrence_count = player_stats.occurrence_count + excluded.occurrence_count`

// MergeKeys folds every row of fromKey into toKey inside one transaction.
// Rows that collide on site and context are combined rather than dropped.
func (r *SightingRepository) MergeKeys(ctx context.Context, fromKey, toKey string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, classify(fmt.Errorf("begin merge keys: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, mergeSightingsQuery, fromKey, toKey); err != nil {
		return 0, classify(fmt.Errorf("merge sightings: %w", err))
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM sightings WHERE player_key = $1", fromKey)
	if err != nil {
		return 0, classify(fmt.Errorf("delete merged sightings: %w", err))
	}
	moved, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("merged row count: %w", err)
	}

	if _, err := tx.ExecContext(ctx, mergeStatsQuery, fromKey, toKey); err != nil {
		return 0, classify(fmt.Errorf("merge player stats: %w", err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM player_stats WHERE player_key = $1", fromKey); err != nil {
		return 0, classify(fmt.Errorf("delete merged player stats: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return 0, classify(fmt.Errorf("commit merge keys: %w", err))
	}
	return moved, nil
}

// contextFreeKeysQuery finds players none of whose sightings carry a team,
// fixture, or match id. COUNT skips NULLs, so all-zero counts mean no
// context anywhere.
const contextFreeKeysQuery = `
SELECT player_key
FROM sightings
GROUP BY player_key
HAVING COUNT(team_name) = 0 AND COUNT(fixture) = 0 AND COUNT(match_id) = 0`

func (r *SightingRepository) PurgeContextFree(ctx context.Context, dryRun bool) (sighting.PurgeResult, error) {
	result := sighting.PurgeResult{DryRun: dryRun}

	if dryRun {
		row := r.db.QueryRowxContext(ctx, `
SELECT COUNT(DISTINCT player_key), COUNT(*)
FROM sightings
WHERE player_key IN (`+contextFreeKeysQuery+`)`)
		if err := row.Scan(&result.PlayersRemoved, &result.RowsRemoved); err != nil {
			return sighting.PurgeResult{}, classify(fmt.Errorf("count context-free players: %w", err))
		}
		return result, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return sighting.PurgeResult{}, classify(fmt.Errorf("begin purge: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	var keys []string
	if err := tx.SelectContext(ctx, &keys, contextFreeKeysQuery); err != nil {
		return sighting.PurgeResult{}, classify(fmt.Errorf("select context-free players: %w", err))
	}
	result.PlayersRemoved = int64(len(keys))
	if len(keys) == 0 {
		return result, tx.Commit()
	}

	deleteSightings, args, err := sqlx.In("DELETE FROM sightings WHERE player_key IN (?)", keys)
	if err != nil {
		return sighting.PurgeResult{}, fmt.Errorf("build purge sightings query: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(deleteSightings), args...)
	if err != nil {
		return sighting.PurgeResult{}, classify(fmt.Errorf("purge sightings: %w", err))
	}
	result.RowsRemoved, err = res.RowsAffected()
	if err != nil {
		return sighting.PurgeResult{}, fmt.Errorf("purged row count: %w", err)
	}

	deleteStats, args, err := sqlx.In("DELETE FROM player_stats WHERE player_key IN (?)", keys)
	if err != nil {
		return sighting.PurgeResult{}, fmt.Errorf("build purge stats query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(deleteStats), args...); err != nil {
		return sighting.PurgeResult{}, classify(fmt.Errorf("purge player stats: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return sighting.PurgeResult{}, classify(fmt.Errorf("commit purge: %w", err))
	}
	return result, nil
}

func (r *SightingRepository) Totals(ctx context.Context) (sighting.Totals, error) {
	var totals sighting.Totals
	row := r.db.QueryRowxContext(ctx, "SELECT COUNT(*), COUNT(DISTINCT player_key) FROM sightings")
	if err := row.Scan(&totals.Rows, &totals.Players); err != nil {
		return sighting.Totals{}, classify(fmt.Errorf("count sightings: %w", err))
	}
	return totals, nil
}

func statsFromRow(row statsTableModel) sighting.Stats {
	return sighting.Stats{
		PlayerKey:       row.PlayerKey,
		FirstSeen:       row.FirstSeen,
		LastSeen:        row.LastSeen,
		OccurrenceCount: row.OccurrenceCount,
	}
}
