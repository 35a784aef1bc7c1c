package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/oddsmith/playerident/internal/domain/candidate"
	"github.com/oddsmith/playerident/internal/infrastructure/repository/memory"
	"github.com/oddsmith/playerident/internal/platform/cache"
)

type maintenanceFixture struct {
	service     *MaintenanceService
	suggestions *SuggestionService
	tracking    *TrackingService
}

func newMaintenanceFixture() maintenanceFixture {
	sightingRepo := memory.NewSightingRepository()
	mappingRepo := memory.NewMappingRepository()
	store := cache.NewStore(time.Minute)
	identity := NewIdentityService(mappingRepo, sightingRepo, store)
	service := NewMaintenanceService(sightingRepo, mappingRepo, store)
	service.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return maintenanceFixture{
		service:     service,
		suggestions: NewSuggestionService(sightingRepo, mappingRepo, identity, store),
		tracking:    NewTrackingService(sightingRepo, identity, 1),
	}
}

func (f maintenanceFixture) track(t *testing.T, input TrackInput) {
	t.Helper()
	if _, err := f.tracking.Track(context.Background(), input); err != nil {
		t.Fatalf("track %q: %v", input.RawName, err)
	}
}

func TestPurgeContextFreeDryRun(t *testing.T) {
	t.Parallel()

	f := newMaintenanceFixture()
	ctx := context.Background()
	f.track(t, TrackInput{RawName: "John Smith", SiteName: "siteA", TeamName: "arsenal"})
	f.track(t, TrackInput{RawName: "Ghost Player", SiteName: "siteA"})
	f.track(t, TrackInput{RawName: "Ghost Player", SiteName: "siteB"})

	result, err := f.service.PurgeContextFree(ctx, true)
	if err != nil {
		t.Fatalf("purge dry run: %v", err)
	}
	if result.PlayersRemoved != 1 || result.RowsRemoved != 2 {
		t.Fatalf("unexpected dry-run counts: %+v", result)
	}
	if !result.DryRun {
		t.Fatalf("dry-run flag lost: %+v", result)
	}

	totals, err := f.service.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Sightings.Players != 2 {
		t.Fatalf("dry run deleted rows: %+v", totals)
	}
}

func TestPurgeContextFreeDeletes(t *testing.T) {
	t.Parallel()

	f := newMaintenanceFixture()
	ctx := context.Background()
	f.track(t, TrackInput{RawName: "John Smith", SiteName: "siteA", TeamName: "arsenal"})
	f.track(t, TrackInput{RawName: "Ghost Player", SiteName: "siteA"})

	result, err := f.service.PurgeContextFree(ctx, false)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if result.PlayersRemoved != 1 {
		t.Fatalf("unexpected purge counts: %+v", result)
	}

	totals, err := f.service.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Sightings.Players != 1 || totals.Sightings.Rows != 1 {
		t.Fatalf("context-free player survived: %+v", totals)
	}
}

func TestPurgeKeepsPartialContext(t *testing.T) {
	t.Parallel()

	f := newMaintenanceFixture()
	ctx := context.Background()
	// One sighting has context, one does not; the player stays.
	f.track(t, TrackInput{RawName: "John Smith", SiteName: "siteA"})
	f.track(t, TrackInput{RawName: "John Smith", SiteName: "siteB", TeamName: "arsenal"})

	result, err := f.service.PurgeContextFree(ctx, false)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if result.PlayersRemoved != 0 {
		t.Fatalf("player with partial context purged: %+v", result)
	}
}

func TestClearSkippedPairs(t *testing.T) {
	t.Parallel()

	f := newMaintenanceFixture()
	ctx := context.Background()
	f.track(t, TrackInput{RawName: "John Smith", SiteName: "siteA"})
	f.track(t, TrackInput{RawName: "Jon Smith", SiteName: "siteB"})

	if _, err := f.suggestions.Decide(ctx, DecideInput{
		KeyA:     "john smith",
		KeyB:     "jon smith",
		Decision: candidate.DecisionSkip,
	}); err != nil {
		t.Fatalf("decide skip: %v", err)
	}

	removed, err := f.service.ClearSkippedPairs(ctx)
	if err != nil {
		t.Fatalf("clear skipped pairs: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removed pair, got %d", removed)
	}

	// The pair can surface again.
	got, err := f.suggestions.ListCandidates(ctx, ListCandidatesInput{})
	if err != nil {
		t.Fatalf("list candidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("cleared pair did not resurface: %v", got)
	}
}

func TestExportSnapshot(t *testing.T) {
	t.Parallel()

	f := newMaintenanceFixture()
	ctx := context.Background()
	f.track(t, TrackInput{RawName: "B. Fernandes", SiteName: "siteA", TeamName: "united"})
	f.track(t, TrackInput{RawName: "Bruno Fernandes", SiteName: "siteB", TeamName: "united"})

	if _, err := f.suggestions.Decide(ctx, DecideInput{
		KeyA:          "b fernandes",
		KeyB:          "bruno fernandes",
		Decision:      candidate.DecisionAccept,
		PreferredName: "Bruno Fernandes",
	}); err != nil {
		t.Fatalf("decide accept: %v", err)
	}

	raw, err := f.service.ExportSnapshot(ctx)
	if err != nil {
		t.Fatalf("export snapshot: %v", err)
	}

	var snapshot Snapshot
	if err := sonic.Unmarshal(raw, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Mappings["b fernandes"] != "Bruno Fernandes" {
		t.Fatalf("mapping missing from snapshot: %+v", snapshot.Mappings)
	}
	if len(snapshot.Players) != 1 || snapshot.Players[0].PlayerKey != "bruno fernandes" {
		t.Fatalf("unexpected players in snapshot: %+v", snapshot.Players)
	}
	if snapshot.Totals.Mappings.Mappings != 1 {
		t.Fatalf("unexpected totals: %+v", snapshot.Totals)
	}
	if snapshot.GeneratedAt.IsZero() {
		t.Fatalf("generated-at not set")
	}
}
