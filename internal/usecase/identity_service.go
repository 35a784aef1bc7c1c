package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oddsmith/playerident/internal/domain/mapping"
	"github.com/oddsmith/playerident/internal/domain/sighting"
	"github.com/oddsmith/playerident/internal/platform/cache"
	"github.com/oddsmith/playerident/internal/platform/namekey"
)

const resolveCachePrefix = "resolve:"

// Resolution is the outcome of mapping a raw site name to a canonical
// player identity.
type Resolution struct {
	RawName       string `json:"raw_name"`
	PlayerKey     string `json:"player_key"`
	PreferredName string `json:"preferred_name"`
	Mapped        bool   `json:"mapped"`
}

// IdentityService resolves raw names to canonical player keys and manages
// the operator-approved mapping table.
type IdentityService struct {
	mappingRepo  mapping.Repository
	sightingRepo sighting.Repository
	store        *cache.Store

	now func() time.Time
}

func NewIdentityService(mappingRepo mapping.Repository, sightingRepo sighting.Repository, store *cache.Store) *IdentityService {
	return &IdentityService{
		mappingRepo:  mappingRepo,
		sightingRepo: sightingRepo,
		store:        store,
		now:          time.Now,
	}
}

// Resolve maps a raw name to its canonical key. Unmapped names resolve to
// their own normalized form, so resolution always succeeds for non-empty
// input and is idempotent: resolving the preferred name returns itself.
func (s *IdentityService) Resolve(ctx context.Context, rawName string) (Resolution, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.Resolve")
	defer span.End()

	key := namekey.Normalize(rawName)
	if key == "" {
		return Resolution{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	value, err := s.store.GetOrLoad(ctx, resolveCachePrefix+key, func(ctx context.Context) (any, error) {
		return s.resolveKey(ctx, key)
	})
	if err != nil {
		return Resolution{}, err
	}

	resolution := value.(Resolution)
	resolution.RawName = rawName
	return resolution, nil
}

// resolveKey follows the mapping table to its fixpoint. Consecutive
// decisions can chain mappings (A maps to B, then B maps to C), so a
// single hop would leave resolve(A) pointing at a key that itself
// resolves further. The seen set terminates on a cycle, settling on the
// last key reached.
func (s *IdentityService) resolveKey(ctx context.Context, key string) (Resolution, error) {
	resolution := Resolution{PlayerKey: key, PreferredName: key}
	seen := map[string]struct{}{key: {}}

	for current := key; ; {
		m, ok, err := s.mappingRepo.Get(ctx, current)
		if err != nil {
			return Resolution{}, fmt.Errorf("get mapping: %w", err)
		}
		if !ok {
			return resolution, nil
		}

		next := namekey.Normalize(m.PreferredName)
		resolution = Resolution{
			PlayerKey:     next,
			PreferredName: m.PreferredName,
			Mapped:        true,
		}
		if _, looped := seen[next]; looped {
			return resolution, nil
		}
		seen[next] = struct{}{}
		current = next
	}
}

// AddMapping records that variantName is the same player as preferredName
// and folds the variant's existing history under the preferred key.
func (s *IdentityService) AddMapping(ctx context.Context, variantName, preferredName string) (Resolution, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.AddMapping")
	defer span.End()

	variantKey := namekey.Normalize(variantName)
	preferredName = strings.TrimSpace(preferredName)
	preferredKey := namekey.Normalize(preferredName)
	if variantKey == "" {
		return Resolution{}, fmt.Errorf("%w: variant name is required", ErrInvalidInput)
	}
	if preferredKey == "" {
		return Resolution{}, fmt.Errorf("%w: preferred name is required", ErrInvalidInput)
	}

	m := mapping.Mapping{
		VariantKey:    variantKey,
		PreferredName: preferredName,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.mappingRepo.Upsert(ctx, m); err != nil {
		return Resolution{}, fmt.Errorf("upsert mapping: %w", err)
	}

	if variantKey != preferredKey {
		if _, err := s.sightingRepo.MergeKeys(ctx, variantKey, preferredKey); err != nil {
			return Resolution{}, fmt.Errorf("merge sightings: %w", err)
		}
	}

	s.store.DeletePrefix(ctx, resolveCachePrefix)

	return Resolution{
		RawName:       variantName,
		PlayerKey:     preferredKey,
		PreferredName: preferredName,
		Mapped:        true,
	}, nil
}

// RemoveMapping deletes the mapping for a variant name. Past merges of
// sighting history are not undone.
func (s *IdentityService) RemoveMapping(ctx context.Context, variantName string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.RemoveMapping")
	defer span.End()

	variantKey := namekey.Normalize(variantName)
	if variantKey == "" {
		return fmt.Errorf("%w: variant name is required", ErrInvalidInput)
	}

	_, ok, err := s.mappingRepo.Get(ctx, variantKey)
	if err != nil {
		return fmt.Errorf("get mapping: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: mapping=%s", ErrNotFound, variantKey)
	}

	if err := s.mappingRepo.Delete(ctx, variantKey); err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}

	s.store.DeletePrefix(ctx, resolveCachePrefix)
	return nil
}

// Mappings returns the full variant-to-preferred table.
func (s *IdentityService) Mappings(ctx context.Context) (map[string]string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.Mappings")
	defer span.End()

	all, err := s.mappingRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return all, nil
}
