package sighting

import (
	"fmt"
	"strings"
	"time"
)

// Position of a player within a fixture, when the source reveals it.
const (
	PositionHome = "home"
	PositionAway = "away"
)

// Sighting is one observation of a player at a site. PlayerKey is the
// normalized (and mapping-resolved) lookup key; RawName preserves the exact
// spelling the source used. MatchID, TeamName, and Fixture are optional
// context that later feeds conflict detection.
type Sighting struct {
	PlayerKey string
	RawName   string
	SiteName  string
	MatchID   *string
	TeamName  *string
	Fixture   *string
	SeenAt    time.Time
}

func (s Sighting) Validate() error {
	if strings.TrimSpace(s.PlayerKey) == "" {
		return fmt.Errorf("sighting player key is required")
	}
	if strings.TrimSpace(s.RawName) == "" {
		return fmt.Errorf("sighting raw name is required")
	}
	if strings.TrimSpace(s.SiteName) == "" {
		return fmt.Errorf("sighting site name is required")
	}
	return nil
}

// HasContext reports whether the sighting carries any disambiguation value.
// Context-free rows are accepted but are a cleanup target.
func (s Sighting) HasContext() bool {
	return s.MatchID != nil || s.TeamName != nil || s.Fixture != nil
}

// Stats is the cached per-key aggregate. It is recomputable from the
// sighting rows and never authoritative.
type Stats struct {
	PlayerKey       string    `json:"player_key"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	OccurrenceCount int64     `json:"occurrence_count"`
}

// PurgeResult reports what a context-free cleanup removed (or would remove,
// in dry-run mode).
type PurgeResult struct {
	PlayersRemoved int64 `json:"players_removed"`
	RowsRemoved    int64 `json:"rows_removed"`
	DryRun         bool  `json:"dry_run"`
}

// Totals are row counts for the tracking tables.
type Totals struct {
	Rows    int64 `json:"rows"`
	Players int64 `json:"players"`
}

var fixtureSeparators = []string{" v ", " vs ", " V ", " VS ", " - "}

// FixtureString builds the canonical "Home v Away" fixture representation.
func FixtureString(homeTeam, awayTeam string) string {
	homeTeam = strings.TrimSpace(homeTeam)
	awayTeam = strings.TrimSpace(awayTeam)
	if homeTeam == "" || awayTeam == "" {
		return ""
	}
	return homeTeam + " v " + awayTeam
}

// TeamFromFixture extracts the player's team from a fixture string when the
// home/away position is known. Returns "" rather than guessing: a wrong team
// association poisons conflict detection.
func TeamFromFixture(fixture, position string) string {
	if fixture == "" {
		return ""
	}
	for _, sep := range fixtureSeparators {
		home, away, found := strings.Cut(fixture, sep)
		if !found {
			continue
		}
		switch position {
		case PositionHome:
			return strings.TrimSpace(home)
		case PositionAway:
			return strings.TrimSpace(away)
		default:
			return ""
		}
	}
	return ""
}
