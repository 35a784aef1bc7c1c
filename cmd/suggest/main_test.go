package main

import (
	"context"
	"testing"
	"time"

	"github.com/oddsmith/playerident/internal/domain/sighting"
	"github.com/oddsmith/playerident/internal/infrastructure/repository/memory"
)

func seedSighting(t *testing.T, repo *memory.SightingRepository, rawName, playerKey, siteName string) {
	t.Helper()
	err := repo.Upsert(context.Background(), sighting.Sighting{
		PlayerKey: playerKey,
		RawName:   rawName,
		SiteName:  siteName,
		SeenAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("upsert %q: %v", rawName, err)
	}
}

func TestDisplayNamePrefersTrackedSpelling(t *testing.T) {
	t.Parallel()

	repo := memory.NewSightingRepository()
	seedSighting(t, repo, "Bruno Fernandes", "bruno fernandes", "siteA")

	got := displayName(context.Background(), repo, "bruno fernandes")
	if got != "Bruno Fernandes" {
		t.Fatalf("expected tracked spelling, got %q", got)
	}
}

func TestDisplayNameSkipsMergedForeignSpellings(t *testing.T) {
	t.Parallel()

	// Merged history leaves raw names under a key they do not normalize
	// to; those must not become the key's display name.
	repo := memory.NewSightingRepository()
	seedSighting(t, repo, "B Fernandes", "bruno fernandes", "siteA")

	got := displayName(context.Background(), repo, "bruno fernandes")
	if got != "bruno fernandes" {
		t.Fatalf("expected key fallback, got %q", got)
	}
}

func TestDisplayNameFallsBackToKey(t *testing.T) {
	t.Parallel()

	repo := memory.NewSightingRepository()

	got := displayName(context.Background(), repo, "john smith")
	if got != "john smith" {
		t.Fatalf("expected key fallback, got %q", got)
	}
}
