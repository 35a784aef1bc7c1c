package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/oddsmith/playerident/internal/domain/candidate"
	"github.com/oddsmith/playerident/internal/domain/mapping"
	"github.com/oddsmith/playerident/internal/domain/sighting"
	"github.com/oddsmith/playerident/internal/platform/cache"
	"github.com/oddsmith/playerident/internal/platform/namekey"
)

const (
	defaultSuggestMaxWorkers = 8
	maxSuggestWorkers        = 64
)

type ListCandidatesInput struct {
	// MinScore defaults to candidate.DefaultMinScore when zero.
	MinScore float64
	// MaxWorkers bounds the pairwise scan pool.
	MaxWorkers int
	// Limit caps the returned candidates; zero means no cap.
	Limit int
}

type DecideInput struct {
	KeyA     string
	KeyB     string
	Decision candidate.Decision
	// PreferredName picks the surviving identity on accept. Its
	// normalized form must be one of the two keys.
	PreferredName string
}

type DecideResult struct {
	KeyA          string             `json:"key_a"`
	KeyB          string             `json:"key_b"`
	Decision      candidate.Decision `json:"decision"`
	PreferredName string             `json:"preferred_name,omitempty"`
	MergedRows    int64              `json:"merged_rows,omitempty"`
}

// PairConflict reports the team evidence behind a conflict check.
type PairConflict struct {
	Conflict bool     `json:"conflict"`
	TeamsA   []string `json:"teams_a"`
	TeamsB   []string `json:"teams_b"`
}

// SuggestionService proposes likely duplicate identities and commits
// operator decisions on them.
type SuggestionService struct {
	sightingRepo sighting.Repository
	mappingRepo  mapping.Repository
	identity     *IdentityService
	store        *cache.Store

	defaultMinScore   float64
	defaultMaxWorkers int

	now func() time.Time
}

func NewSuggestionService(sightingRepo sighting.Repository, mappingRepo mapping.Repository, identity *IdentityService, store *cache.Store) *SuggestionService {
	return &SuggestionService{
		sightingRepo: sightingRepo,
		mappingRepo:  mappingRepo,
		identity:     identity,
		store:        store,
		now:          time.Now,
	}
}

// SetScanDefaults overrides the minimum score and worker count applied
// when a ListCandidates input leaves them zero.
func (s *SuggestionService) SetScanDefaults(minScore float64, maxWorkers int) {
	s.defaultMinScore = minScore
	s.defaultMaxWorkers = maxWorkers
}

// ListCandidates scans every unmapped pair of player keys and returns
// those scoring at or above the threshold, best first. Already mapped
// keys, operator-skipped pairs, and pairs with contradictory team
// evidence never surface.
func (s *SuggestionService) ListCandidates(ctx context.Context, input ListCandidatesInput) ([]candidate.Candidate, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SuggestionService.ListCandidates")
	defer span.End()

	minScore := input.MinScore
	if minScore <= 0 {
		minScore = s.defaultMinScore
	}
	if minScore <= 0 {
		minScore = candidate.DefaultMinScore
	}
	if minScore > 1 {
		return nil, fmt.Errorf("%w: min score must be at most 1", ErrInvalidInput)
	}

	keys, err := s.sightingRepo.AllKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	mappings, err := s.mappingRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	skippedPairs, err := s.mappingRepo.AllSkippedPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list skipped pairs: %w", err)
	}
	teamsByKey, err := s.sightingRepo.TeamsByKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	unmapped := keys[:0]
	for _, key := range keys {
		if _, ok := mappings[key]; !ok {
			unmapped = append(unmapped, key)
		}
	}
	sort.Strings(unmapped)

	skipped := make(map[string]struct{}, len(skippedPairs))
	for _, pair := range skippedPairs {
		skipped[pair.Key1+"\x00"+pair.Key2] = struct{}{}
	}

	requestedWorkers := input.MaxWorkers
	if requestedWorkers <= 0 {
		requestedWorkers = s.defaultMaxWorkers
	}
	workerCount := normalizeWorkerCount(requestedWorkers, len(unmapped))
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var mu sync.Mutex
	var candidates []candidate.Candidate
	var workers sync.WaitGroup

	for i := range unmapped {
		i := i
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			var found []candidate.Candidate
			keyA := unmapped[i]
			for _, keyB := range unmapped[i+1:] {
				k1, k2 := mapping.PairKey(keyA, keyB)
				if _, ok := skipped[k1+"\x00"+k2]; ok {
					continue
				}
				if candidate.HasTeamConflict(teamsByKey[keyA], teamsByKey[keyB]) {
					continue
				}
				score, parts := candidate.Score(keyA, keyB)
				if score < minScore {
					continue
				}
				found = append(found, candidate.Candidate{
					KeyA:          k1,
					KeyB:          k2,
					Score:         score,
					MatchingParts: parts,
				})
			}

			if len(found) > 0 {
				mu.Lock()
				candidates = append(candidates, found...)
				mu.Unlock()
			}
		}); err != nil {
			workers.Done()
			workers.Wait()
			return nil, fmt.Errorf("submit scan task: %w", err)
		}
	}
	workers.Wait()

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].Score != candidates[b].Score {
			return candidates[a].Score > candidates[b].Score
		}
		if candidates[a].KeyA != candidates[b].KeyA {
			return candidates[a].KeyA < candidates[b].KeyA
		}
		return candidates[a].KeyB < candidates[b].KeyB
	})

	if input.Limit > 0 && len(candidates) > input.Limit {
		candidates = candidates[:input.Limit]
	}
	return candidates, nil
}

// Decide commits an operator verdict on a candidate pair. Decisions are
// permanent: a pair that was already accepted or skipped reports
// ErrAlreadyDecided, including when two operators race on the same pair.
func (s *SuggestionService) Decide(ctx context.Context, input DecideInput) (DecideResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SuggestionService.Decide")
	defer span.End()

	keyA := namekey.Normalize(input.KeyA)
	keyB := namekey.Normalize(input.KeyB)
	if keyA == "" || keyB == "" {
		return DecideResult{}, fmt.Errorf("%w: both keys are required", ErrInvalidInput)
	}
	if keyA == keyB {
		return DecideResult{}, fmt.Errorf("%w: keys must differ", ErrInvalidInput)
	}
	if !input.Decision.Valid() {
		return DecideResult{}, fmt.Errorf("%w: decision must be accept or skip", ErrInvalidInput)
	}

	keyA, keyB = mapping.PairKey(keyA, keyB)

	switch input.Decision {
	case candidate.DecisionSkip:
		inserted, err := s.mappingRepo.AddSkippedPair(ctx, mapping.SkippedPair{
			Key1:      keyA,
			Key2:      keyB,
			SkippedAt: s.now().UTC(),
		})
		if err != nil {
			return DecideResult{}, fmt.Errorf("add skipped pair: %w", err)
		}
		if !inserted {
			return DecideResult{}, fmt.Errorf("%w: %s / %s", ErrAlreadyDecided, keyA, keyB)
		}
		return DecideResult{KeyA: keyA, KeyB: keyB, Decision: candidate.DecisionSkip}, nil

	case candidate.DecisionAccept:
		preferredName := strings.TrimSpace(input.PreferredName)
		preferredKey := namekey.Normalize(preferredName)
		if preferredKey != keyA && preferredKey != keyB {
			return DecideResult{}, fmt.Errorf("%w: preferred name must match one of the pair keys", ErrInvalidInput)
		}
		variantKey := keyA
		if preferredKey == keyA {
			variantKey = keyB
		}

		skipped, err := s.mappingRepo.IsSkipped(ctx, keyA, keyB)
		if err != nil {
			return DecideResult{}, fmt.Errorf("check skipped pair: %w", err)
		}
		if skipped {
			return DecideResult{}, fmt.Errorf("%w: %s / %s was skipped", ErrAlreadyDecided, keyA, keyB)
		}

		inserted, err := s.mappingRepo.AddIfAbsent(ctx, mapping.Mapping{
			VariantKey:    variantKey,
			PreferredName: preferredName,
			CreatedAt:     s.now().UTC(),
		})
		if err != nil {
			return DecideResult{}, fmt.Errorf("add mapping: %w", err)
		}
		if !inserted {
			return DecideResult{}, fmt.Errorf("%w: %s already mapped", ErrAlreadyDecided, variantKey)
		}

		merged, err := s.sightingRepo.MergeKeys(ctx, variantKey, preferredKey)
		if err != nil {
			return DecideResult{}, fmt.Errorf("merge sightings: %w", err)
		}

		s.store.DeletePrefix(ctx, resolveCachePrefix)

		return DecideResult{
			KeyA:          keyA,
			KeyB:          keyB,
			Decision:      candidate.DecisionAccept,
			PreferredName: preferredName,
			MergedRows:    merged,
		}, nil
	}

	return DecideResult{}, fmt.Errorf("%w: decision must be accept or skip", ErrInvalidInput)
}

// Conflict returns the team evidence for a pair and whether it rules out
// a merge.
func (s *SuggestionService) Conflict(ctx context.Context, keyA, keyB string) (PairConflict, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SuggestionService.Conflict")
	defer span.End()

	keyA = namekey.Normalize(keyA)
	keyB = namekey.Normalize(keyB)
	if keyA == "" || keyB == "" {
		return PairConflict{}, fmt.Errorf("%w: both keys are required", ErrInvalidInput)
	}

	teamsA, err := s.sightingRepo.Teams(ctx, keyA)
	if err != nil {
		return PairConflict{}, fmt.Errorf("get teams: %w", err)
	}
	teamsB, err := s.sightingRepo.Teams(ctx, keyB)
	if err != nil {
		return PairConflict{}, fmt.Errorf("get teams: %w", err)
	}

	return PairConflict{
		Conflict: candidate.HasTeamConflict(teamsA, teamsB),
		TeamsA:   teamsA,
		TeamsB:   teamsB,
	}, nil
}

func normalizeWorkerCount(requested, taskCount int) int {
	count := requested
	if count <= 0 {
		count = defaultSuggestMaxWorkers
	}
	if count > maxSuggestWorkers {
		count = maxSuggestWorkers
	}
	if taskCount > 0 && count > taskCount {
		count = taskCount
	}
	if count < 1 {
		count = 1
	}
	return count
}
