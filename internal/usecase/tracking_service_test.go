package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/oddsmith/playerident/internal/domain/storage"
	"github.com/oddsmith/playerident/internal/infrastructure/repository/memory"
	"github.com/oddsmith/playerident/internal/platform/cache"
)

func newTrackingFixture(maxAttempts int) (*TrackingService, *memory.SightingRepository, *IdentityService) {
	sightingRepo := memory.NewSightingRepository()
	mappingRepo := memory.NewMappingRepository()
	identity := NewIdentityService(mappingRepo, sightingRepo, cache.NewStore(time.Minute))
	service := NewTrackingService(sightingRepo, identity, maxAttempts)
	service.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return service, sightingRepo, identity
}

func TestTrackRequiresNameAndSite(t *testing.T) {
	t.Parallel()

	service, _, _ := newTrackingFixture(1)
	ctx := context.Background()

	if _, err := service.Track(ctx, TrackInput{SiteName: "siteA"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing name, got %v", err)
	}
	if _, err := service.Track(ctx, TrackInput{RawName: "John Smith"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing site, got %v", err)
	}
}

func TestTrackRecordsSighting(t *testing.T) {
	t.Parallel()

	service, sightingRepo, _ := newTrackingFixture(1)
	ctx := context.Background()

	got, err := service.Track(ctx, TrackInput{
		RawName:  "José Álvarez",
		SiteName: "siteA",
		TeamName: "arsenal",
		Fixture:  "Arsenal v Chelsea",
	})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if got.PlayerKey != "jose alvarez" {
		t.Fatalf("unexpected key: %q", got.PlayerKey)
	}

	stats, ok, err := sightingRepo.Stats(ctx, "jose alvarez")
	if err != nil || !ok {
		t.Fatalf("stats: ok=%v err=%v", ok, err)
	}
	if stats.OccurrenceCount != 1 {
		t.Fatalf("unexpected occurrence count: %d", stats.OccurrenceCount)
	}
}

func TestTrackCollapsesRepeatSightings(t *testing.T) {
	t.Parallel()

	service, sightingRepo, _ := newTrackingFixture(1)
	ctx := context.Background()

	input := TrackInput{RawName: "John Smith", SiteName: "siteA", TeamName: "arsenal"}
	for i := 0; i < 3; i++ {
		if _, err := service.Track(ctx, input); err != nil {
			t.Fatalf("track %d: %v", i, err)
		}
	}

	stats, ok, err := sightingRepo.Stats(ctx, "john smith")
	if err != nil || !ok {
		t.Fatalf("stats: ok=%v err=%v", ok, err)
	}
	if stats.OccurrenceCount != 3 {
		t.Fatalf("expected 3 occurrences, got %d", stats.OccurrenceCount)
	}

	totals, err := sightingRepo.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Rows != 1 {
		t.Fatalf("repeat sightings should collapse to one row, got %d", totals.Rows)
	}
}

func TestTrackAppliesExistingMapping(t *testing.T) {
	t.Parallel()

	service, sightingRepo, identity := newTrackingFixture(1)
	ctx := context.Background()

	if _, err := identity.AddMapping(ctx, "B. Fernandes", "Bruno Fernandes"); err != nil {
		t.Fatalf("add mapping: %v", err)
	}

	got, err := service.Track(ctx, TrackInput{RawName: "B. Fernandes", SiteName: "siteB"})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if got.PlayerKey != "bruno fernandes" {
		t.Fatalf("mapping not applied: %q", got.PlayerKey)
	}

	keys, err := sightingRepo.AllKeys(ctx)
	if err != nil {
		t.Fatalf("all keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "bruno fernandes" {
		t.Fatalf("sighting stored under wrong key: %v", keys)
	}
}

func TestTrackRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	service, sightingRepo, _ := newTrackingFixture(3)
	ctx := context.Background()

	sightingRepo.FailNextUpserts(2, crerr.Mark(errors.New("serialization conflict"), storage.ErrTransient))

	if _, err := service.Track(ctx, TrackInput{RawName: "John Smith", SiteName: "siteA"}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestTrackGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	service, sightingRepo, _ := newTrackingFixture(2)
	ctx := context.Background()

	sightingRepo.FailNextUpserts(5, crerr.Mark(errors.New("serialization conflict"), storage.ErrTransient))

	_, err := service.Track(ctx, TrackInput{RawName: "John Smith", SiteName: "siteA"})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestTrackDoesNotRetryPermanentFailures(t *testing.T) {
	t.Parallel()

	service, sightingRepo, _ := newTrackingFixture(3)
	ctx := context.Background()

	sightingRepo.FailNextUpserts(1, errors.New("constraint violation"))

	_, err := service.Track(ctx, TrackInput{RawName: "John Smith", SiteName: "siteA"})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}

	// The single injected failure was consumed without retries; the next
	// write goes through.
	if _, err := service.Track(ctx, TrackInput{RawName: "John Smith", SiteName: "siteA"}); err != nil {
		t.Fatalf("track after failure: %v", err)
	}
	stats, ok, err := sightingRepo.Stats(ctx, "john smith")
	if err != nil || !ok {
		t.Fatalf("stats: ok=%v err=%v", ok, err)
	}
	if stats.OccurrenceCount != 1 {
		t.Fatalf("permanent failure was retried: count=%d", stats.OccurrenceCount)
	}
}

func TestStatsNotFound(t *testing.T) {
	t.Parallel()

	service, _, _ := newTrackingFixture(1)

	if _, err := service.Stats(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDetailsAggregatesPlayer(t *testing.T) {
	t.Parallel()

	service, _, _ := newTrackingFixture(1)
	ctx := context.Background()

	inputs := []TrackInput{
		{RawName: "John Smith", SiteName: "siteA", TeamName: "arsenal", Fixture: "Arsenal v Chelsea"},
		{RawName: "JOHN SMITH", SiteName: "siteB", TeamName: "arsenal"},
		{RawName: "John Smith", SiteName: "siteA", Fixture: "Arsenal v Spurs"},
	}
	for i, input := range inputs {
		if _, err := service.Track(ctx, input); err != nil {
			t.Fatalf("track %d: %v", i, err)
		}
	}

	details, err := service.Details(ctx, "john smith")
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if len(details.Teams) != 1 || details.Teams[0] != "arsenal" {
		t.Fatalf("unexpected teams: %v", details.Teams)
	}
	if len(details.Fixtures) != 2 {
		t.Fatalf("unexpected fixtures: %v", details.Fixtures)
	}
	if len(details.RawNamesBySite["siteA"]) != 1 {
		t.Fatalf("unexpected siteA raw names: %v", details.RawNamesBySite["siteA"])
	}
	if details.RawNamesBySite["siteB"][0] != "JOHN SMITH" {
		t.Fatalf("raw spelling not preserved: %v", details.RawNamesBySite["siteB"])
	}
	if details.Stats == nil || details.Stats.OccurrenceCount != 3 {
		t.Fatalf("unexpected stats: %+v", details.Stats)
	}
}

func TestDetailsNotFound(t *testing.T) {
	t.Parallel()

	service, _, _ := newTrackingFixture(1)

	if _, err := service.Details(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrackKeepsMatchIDOnceFilled(t *testing.T) {
	t.Parallel()

	service, sightingRepo, _ := newTrackingFixture(1)
	ctx := context.Background()

	base := TrackInput{RawName: "John Smith", SiteName: "siteA"}

	// First sighting carries no match id: the row is context-free.
	if _, err := service.Track(ctx, base); err != nil {
		t.Fatalf("track without match id: %v", err)
	}
	purge, err := sightingRepo.PurgeContextFree(ctx, true)
	if err != nil {
		t.Fatalf("purge dry run: %v", err)
	}
	if purge.PlayersRemoved != 1 {
		t.Fatalf("expected context-free player before fill, got %+v", purge)
	}

	// A repeat sighting with a match id fills the empty column.
	withMatch := base
	withMatch.MatchID = "m1"
	if _, err := service.Track(ctx, withMatch); err != nil {
		t.Fatalf("track with match id: %v", err)
	}

	// A later sighting without one must not erase it.
	if _, err := service.Track(ctx, base); err != nil {
		t.Fatalf("track without match id again: %v", err)
	}

	purge, err = sightingRepo.PurgeContextFree(ctx, true)
	if err != nil {
		t.Fatalf("purge dry run: %v", err)
	}
	if purge.PlayersRemoved != 0 {
		t.Fatalf("match id was erased: %+v", purge)
	}

	stats, ok, err := sightingRepo.Stats(ctx, "john smith")
	if err != nil || !ok {
		t.Fatalf("stats: ok=%v err=%v", ok, err)
	}
	if stats.OccurrenceCount != 3 {
		t.Fatalf("expected one row with three occurrences, got %+v", stats)
	}
}
