package querybuilder

import (
	"reflect"
	"testing"
)

func TestSelect_BasicConditions(t *testing.T) {
	query, args, err := Select("player_key", "raw_name").
		From("sightings").
		Where(
			Eq("player_key", "bruno fernandes"),
			IsNotNull("team_name"),
		).
		OrderBy("seen_at DESC").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	want := "SELECT player_key, raw_name FROM sightings WHERE player_key = $1 AND team_name IS NOT NULL ORDER BY seen_at DESC LIMIT 10"
	if query != want {
		t.Fatalf("unexpected query:\n got: %s\nwant: %s", query, want)
	}
	if !reflect.DeepEqual(args, []any{"bruno fernandes"}) {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestSelect_DistinctAndIn(t *testing.T) {
	query, args, err := Select("team_name").
		Distinct().
		From("sightings").
		Where(
			In("player_key", []any{"a", "b"}),
			IsNull("match_id"),
		).
		ToSQL()
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	want := "SELECT DISTINCT team_name FROM sightings WHERE player_key IN ($1, $2) AND match_id IS NULL"
	if query != want {
		t.Fatalf("unexpected query:\n got: %s\nwant: %s", query, want)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestSelect_EmptyInNeverMatches(t *testing.T) {
	query, args, err := Select("player_key").
		From("sightings").
		Where(In("player_key", nil)).
		ToSQL()
	if err != nil {
		t.Fatalf("build query: %v", err)
	}

	want := "SELECT player_key FROM sightings WHERE 1=0"
	if query != want {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestSelect_Validation(t *testing.T) {
	if _, _, err := Select().From("sightings").ToSQL(); err == nil {
		t.Fatalf("expected error for missing columns")
	}
	if _, _, err := Select("player_key").ToSQL(); err == nil {
		t.Fatalf("expected error for missing table")
	}
}
