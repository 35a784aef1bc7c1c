package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc/pool"
	"github.com/valyala/bytebufferpool"

	"github.com/oddsmith/playerident/internal/domain/mapping"
	"github.com/oddsmith/playerident/internal/domain/sighting"
	"github.com/oddsmith/playerident/internal/platform/cache"
)

// Snapshot is a full export of the identity store, for offline review and
// seeding other environments.
type Snapshot struct {
	GeneratedAt  time.Time             `json:"generated_at"`
	Mappings     map[string]string     `json:"mappings"`
	SkippedPairs []mapping.SkippedPair `json:"skipped_pairs"`
	Players      []sighting.Stats      `json:"players"`
	Totals       StoreTotals           `json:"totals"`
}

// StoreTotals combines row counts across the identity store.
type StoreTotals struct {
	Sightings sighting.Totals `json:"sightings"`
	Mappings  mapping.Totals  `json:"mappings"`
}

// MaintenanceService covers the operator housekeeping surface: purging
// context-free players, resetting skip decisions, and exporting snapshots.
type MaintenanceService struct {
	sightingRepo sighting.Repository
	mappingRepo  mapping.Repository
	store        *cache.Store

	now func() time.Time
}

func NewMaintenanceService(sightingRepo sighting.Repository, mappingRepo mapping.Repository, store *cache.Store) *MaintenanceService {
	return &MaintenanceService{
		sightingRepo: sightingRepo,
		mappingRepo:  mappingRepo,
		store:        store,
		now:          time.Now,
	}
}

// PurgeContextFree removes players whose sightings carry no team or
// fixture evidence at all. Such rows cannot be safely merged or
// conflict-checked, so they only add noise to the candidate scan. With
// dryRun the counts are computed but nothing is deleted.
func (s *MaintenanceService) PurgeContextFree(ctx context.Context, dryRun bool) (sighting.PurgeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MaintenanceService.PurgeContextFree")
	defer span.End()

	result, err := s.sightingRepo.PurgeContextFree(ctx, dryRun)
	if err != nil {
		return sighting.PurgeResult{}, fmt.Errorf("purge context-free players: %w", err)
	}
	if !dryRun && result.RowsRemoved > 0 {
		s.store.DeletePrefix(ctx, resolveCachePrefix)
	}
	return result, nil
}

// ClearSkippedPairs wipes all skip decisions so previously rejected pairs
// can surface again. Accepted mappings are untouched.
func (s *MaintenanceService) ClearSkippedPairs(ctx context.Context) (int64, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MaintenanceService.ClearSkippedPairs")
	defer span.End()

	removed, err := s.mappingRepo.ClearSkippedPairs(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear skipped pairs: %w", err)
	}
	return removed, nil
}

// Totals returns row counts across the identity store.
func (s *MaintenanceService) Totals(ctx context.Context) (StoreTotals, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MaintenanceService.Totals")
	defer span.End()

	sightingTotals, err := s.sightingRepo.Totals(ctx)
	if err != nil {
		return StoreTotals{}, fmt.Errorf("sighting totals: %w", err)
	}
	mappingTotals, err := s.mappingRepo.Totals(ctx)
	if err != nil {
		return StoreTotals{}, fmt.Errorf("mapping totals: %w", err)
	}
	return StoreTotals{Sightings: sightingTotals, Mappings: mappingTotals}, nil
}

// ExportSnapshot serializes the whole store to JSON. The reads fan out
// concurrently; the first error cancels the rest.
func (s *MaintenanceService) ExportSnapshot(ctx context.Context) ([]byte, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MaintenanceService.ExportSnapshot")
	defer span.End()

	snapshot := Snapshot{GeneratedAt: s.now().UTC()}

	group := pool.New().WithErrors().WithContext(ctx)
	group.Go(func(ctx context.Context) error {
		mappings, err := s.mappingRepo.All(ctx)
		if err != nil {
			return fmt.Errorf("list mappings: %w", err)
		}
		snapshot.Mappings = mappings
		return nil
	})
	group.Go(func(ctx context.Context) error {
		pairs, err := s.mappingRepo.AllSkippedPairs(ctx)
		if err != nil {
			return fmt.Errorf("list skipped pairs: %w", err)
		}
		snapshot.SkippedPairs = pairs
		return nil
	})
	group.Go(func(ctx context.Context) error {
		players, err := s.sightingRepo.AllStats(ctx)
		if err != nil {
			return fmt.Errorf("list player stats: %w", err)
		}
		snapshot.Players = players
		return nil
	})
	group.Go(func(ctx context.Context) error {
		totals, err := s.Totals(ctx)
		if err != nil {
			return err
		}
		snapshot.Totals = totals
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if snapshot.Mappings == nil {
		snapshot.Mappings = map[string]string{}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(snapshot); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
