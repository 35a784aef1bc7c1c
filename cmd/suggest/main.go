package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/oddsmith/playerident/internal/app"
	"github.com/oddsmith/playerident/internal/config"
	"github.com/oddsmith/playerident/internal/domain/candidate"
	"github.com/oddsmith/playerident/internal/infrastructure/repository/postgres"
	"github.com/oddsmith/playerident/internal/platform/cache"
	"github.com/oddsmith/playerident/internal/platform/logging"
	"github.com/oddsmith/playerident/internal/platform/namekey"
	"github.com/oddsmith/playerident/internal/usecase"
)

// suggest is the interactive review loop for merge candidates. It walks
// the operator through each proposed pair and records the verdict.
func main() {
	minScore := flag.Float64("min-score", 0, "minimum candidate score (0 uses the configured default)")
	limit := flag.Int("limit", 0, "maximum candidates to review (0 means all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSON(logging.LevelWarn)
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close() //nolint:errcheck

	sightingRepo := postgres.NewSightingRepository(db)
	mappingRepo := postgres.NewMappingRepository(db)
	store := cache.NewDisabledStore()

	identitySvc := usecase.NewIdentityService(mappingRepo, sightingRepo, store)
	suggestionSvc := usecase.NewSuggestionService(sightingRepo, mappingRepo, identitySvc, store)
	suggestionSvc.SetScanDefaults(cfg.SuggestMinScore, cfg.SuggestMaxWorkers)

	candidates, err := suggestionSvc.ListCandidates(ctx, usecase.ListCandidatesInput{
		MinScore: *minScore,
		Limit:    *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "list candidates: %v\n", err)
		os.Exit(1)
	}
	if len(candidates) == 0 {
		fmt.Println("no merge candidates found")
		return
	}

	fmt.Printf("%d candidate(s) to review\n\n", len(candidates))

	reader := bufio.NewScanner(os.Stdin)
	var accepted, skipped int

	for i, cand := range candidates {
		if ctx.Err() != nil {
			break
		}

		printCandidate(ctx, sightingRepo, i+1, len(candidates), cand)

		nameA := displayName(ctx, sightingRepo, cand.KeyA)
		nameB := displayName(ctx, sightingRepo, cand.KeyB)
		verdict, ok := promptVerdict(reader, cand, nameA, nameB)
		if !ok {
			break
		}
		if verdict.Decision == "" {
			continue
		}

		result, err := suggestionSvc.Decide(ctx, verdict)
		switch {
		case errors.Is(err, usecase.ErrAlreadyDecided):
			fmt.Println("  already decided by another operator, moving on")
			continue
		case err != nil:
			fmt.Fprintf(os.Stderr, "record decision: %v\n", err)
			os.Exit(1)
		}

		if result.Decision == candidate.DecisionAccept {
			accepted++
			fmt.Printf("  merged %d sighting row(s) into %q\n\n", result.MergedRows, result.PreferredName)
		} else {
			skipped++
			fmt.Println("  pair skipped, it will not be proposed again")
			fmt.Println()
		}
	}

	fmt.Printf("done: %d accepted, %d skipped\n", accepted, skipped)
}

type sightingEvidence interface {
	Teams(ctx context.Context, playerKey string) ([]string, error)
	RawNamesBySite(ctx context.Context, playerKey string) (map[string][]string, error)
}

func printCandidate(ctx context.Context, repo sightingEvidence, index, total int, cand candidate.Candidate) {
	fmt.Printf("[%d/%d] %q <-> %q (score %.2f)\n", index, total, cand.KeyA, cand.KeyB, cand.Score)
	if len(cand.MatchingParts) > 0 {
		fmt.Printf("  matching: %s\n", strings.Join(cand.MatchingParts, ", "))
	}
	for _, key := range []string{cand.KeyA, cand.KeyB} {
		if spellings := rawSpellings(ctx, repo, key); len(spellings) > 0 {
			fmt.Printf("  seen as %q: %s\n", key, strings.Join(spellings, ", "))
		}
		teams, err := repo.Teams(ctx, key)
		if err != nil || len(teams) == 0 {
			continue
		}
		fmt.Printf("  teams for %q: %s\n", key, strings.Join(teams, ", "))
	}
}

func rawSpellings(ctx context.Context, repo sightingEvidence, key string) []string {
	bySite, err := repo.RawNamesBySite(ctx, key)
	if err != nil {
		return nil
	}

	seen := map[string]struct{}{}
	var out []string
	for _, names := range bySite {
		for _, name := range names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// displayName picks the preferred spelling for a key: the first tracked
// raw name that normalizes back to it. Merged history can carry raw names
// of other keys, so those are filtered out; the key itself is the
// fallback.
func displayName(ctx context.Context, repo sightingEvidence, key string) string {
	for _, name := range rawSpellings(ctx, repo, key) {
		if namekey.Normalize(name) == key {
			return name
		}
	}
	return key
}

// promptVerdict returns ok=false on quit or closed stdin. A zero
// Decision means the operator deferred the pair. Accepting keeps the
// tracked spelling of the chosen side as the display name.
func promptVerdict(reader *bufio.Scanner, cand candidate.Candidate, nameA, nameB string) (usecase.DecideInput, bool) {
	for {
		fmt.Printf("  [1] keep %q  [2] keep %q  [s] skip pair  [n] decide later  [q] quit: ", nameA, nameB)
		if !reader.Scan() {
			fmt.Println()
			return usecase.DecideInput{}, false
		}

		input := usecase.DecideInput{KeyA: cand.KeyA, KeyB: cand.KeyB}
		switch strings.ToLower(strings.TrimSpace(reader.Text())) {
		case "1":
			input.Decision = candidate.DecisionAccept
			input.PreferredName = nameA
			return input, true
		case "2":
			input.Decision = candidate.DecisionAccept
			input.PreferredName = nameB
			return input, true
		case "s":
			input.Decision = candidate.DecisionSkip
			return input, true
		case "n":
			return usecase.DecideInput{}, true
		case "q":
			return usecase.DecideInput{}, false
		}
	}
}
