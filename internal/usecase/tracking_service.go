package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oddsmith/playerident/internal/domain/sighting"
	"github.com/oddsmith/playerident/internal/domain/storage"
)

const defaultTrackMaxAttempts = 3

type TrackInput struct {
	RawName  string
	SiteName string
	MatchID  string
	TeamName string
	Fixture  string
}

type TrackResult struct {
	PlayerKey     string `json:"player_key"`
	PreferredName string `json:"preferred_name"`
	Mapped        bool   `json:"mapped"`
}

// PlayerDetails aggregates everything recorded about one canonical player.
type PlayerDetails struct {
	PlayerKey      string              `json:"player_key"`
	PreferredName  string              `json:"preferred_name"`
	Teams          []string            `json:"teams"`
	Fixtures       []string            `json:"fixtures"`
	RawNamesBySite map[string][]string `json:"raw_names_by_site"`
	Stats          *sighting.Stats     `json:"stats,omitempty"`
}

// TrackingService records player sightings from odds sites. Every write
// goes through identity resolution first, so merges already decided by an
// operator apply to new data immediately.
type TrackingService struct {
	sightingRepo sighting.Repository
	identity     *IdentityService

	maxAttempts int
	now         func() time.Time
}

func NewTrackingService(sightingRepo sighting.Repository, identity *IdentityService, maxAttempts int) *TrackingService {
	if maxAttempts < 1 {
		maxAttempts = defaultTrackMaxAttempts
	}
	return &TrackingService{
		sightingRepo: sightingRepo,
		identity:     identity,
		maxAttempts:  maxAttempts,
		now:          time.Now,
	}
}

// Track records one sighting. Repeated sightings of the same player on the
// same site in the same context collapse into one row with an updated
// last-seen time and occurrence count. Transient storage failures are
// retried up to maxAttempts before reporting the dependency unavailable.
func (s *TrackingService) Track(ctx context.Context, input TrackInput) (TrackResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackingService.Track")
	defer span.End()

	rawName := strings.TrimSpace(input.RawName)
	siteName := strings.TrimSpace(input.SiteName)
	if rawName == "" {
		return TrackResult{}, fmt.Errorf("%w: raw name is required", ErrInvalidInput)
	}
	if siteName == "" {
		return TrackResult{}, fmt.Errorf("%w: site name is required", ErrInvalidInput)
	}

	resolution, err := s.identity.Resolve(ctx, rawName)
	if err != nil {
		return TrackResult{}, fmt.Errorf("resolve name: %w", err)
	}

	row := sighting.Sighting{
		PlayerKey: resolution.PlayerKey,
		RawName:   rawName,
		SiteName:  siteName,
		MatchID:   optional(input.MatchID),
		TeamName:  optional(input.TeamName),
		Fixture:   optional(input.Fixture),
		SeenAt:    s.now().UTC(),
	}
	if err := row.Validate(); err != nil {
		return TrackResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	for attempt := 1; ; attempt++ {
		err = s.sightingRepo.Upsert(ctx, row)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrTransient) || attempt >= s.maxAttempts {
			return TrackResult{}, fmt.Errorf("%w: upsert sighting: %v", ErrDependencyUnavailable, err)
		}
	}

	return TrackResult{
		PlayerKey:     resolution.PlayerKey,
		PreferredName: resolution.PreferredName,
		Mapped:        resolution.Mapped,
	}, nil
}

// Stats returns first/last seen times and the occurrence count for a key.
func (s *TrackingService) Stats(ctx context.Context, playerKey string) (sighting.Stats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackingService.Stats")
	defer span.End()

	playerKey = strings.TrimSpace(playerKey)
	if playerKey == "" {
		return sighting.Stats{}, fmt.Errorf("%w: player key is required", ErrInvalidInput)
	}

	stats, ok, err := s.sightingRepo.Stats(ctx, playerKey)
	if err != nil {
		return sighting.Stats{}, fmt.Errorf("get stats: %w", err)
	}
	if !ok {
		return sighting.Stats{}, fmt.Errorf("%w: player=%s", ErrNotFound, playerKey)
	}
	return stats, nil
}

// Details returns teams, fixtures, per-site raw names, and stats for a key.
func (s *TrackingService) Details(ctx context.Context, playerKey string) (PlayerDetails, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackingService.Details")
	defer span.End()

	playerKey = strings.TrimSpace(playerKey)
	if playerKey == "" {
		return PlayerDetails{}, fmt.Errorf("%w: player key is required", ErrInvalidInput)
	}

	rawNames, err := s.sightingRepo.RawNamesBySite(ctx, playerKey)
	if err != nil {
		return PlayerDetails{}, fmt.Errorf("get raw names: %w", err)
	}
	if len(rawNames) == 0 {
		return PlayerDetails{}, fmt.Errorf("%w: player=%s", ErrNotFound, playerKey)
	}

	teams, err := s.sightingRepo.Teams(ctx, playerKey)
	if err != nil {
		return PlayerDetails{}, fmt.Errorf("get teams: %w", err)
	}
	fixtures, err := s.sightingRepo.Fixtures(ctx, playerKey)
	if err != nil {
		return PlayerDetails{}, fmt.Errorf("get fixtures: %w", err)
	}

	details := PlayerDetails{
		PlayerKey:      playerKey,
		PreferredName:  playerKey,
		Teams:          teams,
		Fixtures:       fixtures,
		RawNamesBySite: rawNames,
	}

	resolution, err := s.identity.Resolve(ctx, playerKey)
	if err == nil && resolution.Mapped {
		details.PreferredName = resolution.PreferredName
	}

	stats, ok, err := s.sightingRepo.Stats(ctx, playerKey)
	if err != nil {
		return PlayerDetails{}, fmt.Errorf("get stats: %w", err)
	}
	if ok {
		details.Stats = &stats
	}

	return details, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
