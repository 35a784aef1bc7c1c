package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oddsmith/playerident/internal/domain/mapping"
	qb "github.com/oddsmith/playerident/internal/platform/querybuilder"
)

// MappingRepository stores operator decisions: accepted mappings and
// skipped pairs.
type MappingRepository struct {
	db *sqlx.DB
}

var _ mapping.Repository = (*MappingRepository)(nil)

func NewMappingRepository(db *sqlx.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

var mappingSelectColumns = []string{
	"variant_key",
	"preferred_name",
	"created_at",
}

func (r *MappingRepository) Get(ctx context.Context, variantKey string) (mapping.Mapping, bool, error) {
	query, args, err := qb.Select(mappingSelectColumns...).From("player_mappings").
		Where(qb.Eq("variant_key", variantKey)).
		ToSQL()
	if err != nil {
		return mapping.Mapping{}, false, fmt.Errorf("build select mapping query: %w", err)
	}

	var row mappingTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return mapping.Mapping{}, false, nil
		}
		return mapping.Mapping{}, false, classify(fmt.Errorf("select mapping: %w", err))
	}
	return mapping.Mapping{
		VariantKey:    row.VariantKey,
		PreferredName: row.PreferredName,
		CreatedAt:     row.CreatedAt,
	}, true, nil
}

func (r *MappingRepository) All(ctx context.Context) (map[string]string, error) {
	query, args, err := qb.Select("variant_key", "preferred_name").From("player_mappings").
		OrderBy("variant_key").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select mappings query: %w", err)
	}

	var rows []mappingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(fmt.Errorf("select mappings: %w", err))
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.VariantKey] = row.PreferredName
	}
	return out, nil
}

const upsertMappingQuery = `
INSERT INTO player_mappings (variant_key, preferred_name, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (variant_key)
DO UPDATE SET preferred_name = excluded.preferred_name`

func (r *MappingRepository) Upsert(ctx context.Context, m mapping.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertMappingQuery, m.VariantKey, m.PreferredName, m.CreatedAt); err != nil {
		return classify(fmt.Errorf("upsert mapping: %w", err))
	}
	return nil
}

const insertMappingQuery = `
INSERT INTO player_mappings (variant_key, preferred_name, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (variant_key) DO NOTHING`

// AddIfAbsent relies on ON CONFLICT DO NOTHING, so of two concurrent
// writers exactly one observes an insert.
func (r *MappingRepository) AddIfAbsent(ctx context.Context, m mapping.Mapping) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}
	result, err := r.db.ExecContext(ctx, insertMappingQuery, m.VariantKey, m.PreferredName, m.CreatedAt)
	if err != nil {
		return false, classify(fmt.Errorf("insert mapping: %w", err))
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserted mapping count: %w", err)
	}
	return inserted > 0, nil
}

func (r *MappingRepository) Delete(ctx context.Context, variantKey string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM player_mappings WHERE variant_key = $1", variantKey); err != nil {
		return classify(fmt.Errorf("delete mapping: %w", err))
	}
	return nil
}

func (r *MappingRepository) IsSkipped(ctx context.Context, keyA, keyB string) (bool, error) {
	k1, k2 := mapping.PairKey(keyA, keyB)

	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM skipped_pairs WHERE key_1 = $1 AND key_2 = $2", k1, k2)
	if err != nil {
		return false, classify(fmt.Errorf("select skipped pair: %w", err))
	}
	return count > 0, nil
}

const insertSkippedPairQuery = `
INSERT INTO skipped_pairs (key_1, key_2, skipped_at)
VALUES ($1, $2, $3)
ON CONFLICT (key_1, key_2) DO NOTHING`

func (r *MappingRepository) AddSkippedPair(ctx context.Context, p mapping.SkippedPair) (bool, error) {
	k1, k2 := mapping.PairKey(p.Key1, p.Key2)

	result, err := r.db.ExecContext(ctx, insertSkippedPairQuery, k1, k2, p.SkippedAt)
	if err != nil {
		return false, classify(fmt.Errorf("insert skipped pair: %w", err))
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserted skipped pair count: %w", err)
	}
	return inserted > 0, nil
}

func (r *MappingRepository) AllSkippedPairs(ctx context.Context) ([]mapping.SkippedPair, error) {
	query, args, err := qb.Select("key_1", "key_2", "skipped_at").From("skipped_pairs").
		OrderBy("key_1", "key_2").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select skipped pairs query: %w", err)
	}

	var rows []skippedPairTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(fmt.Errorf("select skipped pairs: %w", err))
	}

	out := make([]mapping.SkippedPair, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapping.SkippedPair{
			Key1:      row.Key1,
			Key2:      row.Key2,
			SkippedAt: row.SkippedAt,
		})
	}
	return out, nil
}

func (r *MappingRepository) ClearSkippedPairs(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM skipped_pairs")
	if err != nil {
		return 0, classify(fmt.Errorf("clear skipped pairs: %w", err))
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleared skipped pair count: %w", err)
	}
	return removed, nil
}

func (r *MappingRepository) Totals(ctx context.Context) (mapping.Totals, error) {
	var totals mapping.Totals
	if err := r.db.GetContext(ctx, &totals.Mappings, "SELECT COUNT(*) FROM player_mappings"); err != nil {
		return mapping.Totals{}, classify(fmt.Errorf("count mappings: %w", err))
	}
	if err := r.db.GetContext(ctx, &totals.SkippedPairs, "SELECT COUNT(*) FROM skipped_pairs"); err != nil {
		return mapping.Totals{}, classify(fmt.Errorf("count skipped pairs: %w", err))
	}
	return totals, nil
}
