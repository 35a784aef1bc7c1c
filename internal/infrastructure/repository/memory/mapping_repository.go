package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oddsmith/playerident/internal/domain/mapping"
)

// MappingRepository is an in-memory mapping.Repository, used by tests and
// local runs without Postgres.
type MappingRepository struct {
	mu       sync.RWMutex
	mappings map[string]mapping.Mapping
	skipped  map[[2]string]mapping.SkippedPair
}

var _ mapping.Repository = (*MappingRepository)(nil)

func NewMappingRepository() *MappingRepository {
	return &MappingRepository{
		mappings: make(map[string]mapping.Mapping),
		skipped:  make(map[[2]string]mapping.SkippedPair),
	}
}

func (r *MappingRepository) Get(_ context.Context, variantKey string) (mapping.Mapping, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mappings[variantKey]
	return m, ok, nil
}

func (r *MappingRepository) All(_ context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.mappings))
	for key, m := range r.mappings {
		out[key] = m.PreferredName
	}
	return out, nil
}

func (r *MappingRepository) Upsert(_ context.Context, m mapping.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[m.VariantKey] = m
	return nil
}

func (r *MappingRepository) AddIfAbsent(_ context.Context, m mapping.Mapping) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mappings[m.VariantKey]; ok {
		return false, nil
	}
	r.mappings[m.VariantKey] = m
	return true, nil
}

func (r *MappingRepository) Delete(_ context.Context, variantKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mappings, variantKey)
	return nil
}

func (r *MappingRepository) IsSkipped(_ context.Context, keyA, keyB string) (bool, error) {
	k1, k2 := mapping.PairKey(keyA, keyB)

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.skipped[[2]string{k1, k2}]
	return ok, nil
}

func (r *MappingRepository) AddSkippedPair(_ context.Context, p mapping.SkippedPair) (bool, error) {
	k1, k2 := mapping.PairKey(p.Key1, p.Key2)
	p.Key1, p.Key2 = k1, k2

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.skipped[[2]string{k1, k2}]; ok {
		return false, nil
	}
	r.skipped[[2]string{k1, k2}] = p
	return true, nil
}

func (r *MappingRepository) AllSkippedPairs(_ context.Context) ([]mapping.SkippedPair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]mapping.SkippedPair, 0, len(r.skipped))
	for _, p := range r.skipped {
		out = append(out, p)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Key1 != out[b].Key1 {
			return out[a].Key1 < out[b].Key1
		}
		return out[a].Key2 < out[b].Key2
	})
	return out, nil
}

func (r *MappingRepository) ClearSkippedPairs(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := int64(len(r.skipped))
	r.skipped = make(map[[2]string]mapping.SkippedPair)
	return removed, nil
}

func (r *MappingRepository) Totals(_ context.Context) (mapping.Totals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return mapping.Totals{
		Mappings:     int64(len(r.mappings)),
		SkippedPairs: int64(len(r.skipped)),
	}, nil
}
