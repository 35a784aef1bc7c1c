package httpapi

import (
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/oddsmith/playerident/internal/domain/sighting"
	"github.com/oddsmith/playerident/internal/usecase"
)

type trackSightingRequest struct {
	RawName  string `json:"raw_name" validate:"required,min=1,max=256"`
	SiteName string `json:"site_name" validate:"required,min=1,max=128"`
	MatchID  string `json:"match_id" validate:"omitempty,max=128"`
	TeamName string `json:"team_name" validate:"omitempty,max=128"`
	Fixture  string `json:"fixture" validate:"omitempty,max=256"`

	// Sources that expose a match page rather than a team column can send
	// the fixture split into sides, plus which side the player is on.
	HomeTeam string `json:"home_team" validate:"omitempty,max=128"`
	AwayTeam string `json:"away_team" validate:"omitempty,max=128"`
	Position string `json:"position" validate:"omitempty,oneof=home away"`
}

// fixtureContext fills Fixture from home/away sides and TeamName from the
// player's position, when the explicit fields were not sent.
func (req *trackSightingRequest) fixtureContext() {
	if req.Fixture == "" {
		req.Fixture = sighting.FixtureString(req.HomeTeam, req.AwayTeam)
	}
	if req.TeamName == "" {
		req.TeamName = sighting.TeamFromFixture(req.Fixture, req.Position)
	}
}

type playerStatsResponse struct {
	PlayerKey       string    `json:"player_key"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	OccurrenceCount int64     `json:"occurrence_count"`
}

func (h *Handler) TrackSighting(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.TrackSighting")
	defer span.End()

	var req trackSightingRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid request body: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	req.fixtureContext()

	result, err := h.trackingService.Track(ctx, usecase.TrackInput{
		RawName:  req.RawName,
		SiteName: req.SiteName,
		MatchID:  req.MatchID,
		TeamName: req.TeamName,
		Fixture:  req.Fixture,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, result)
}

func (h *Handler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerStats")
	defer span.End()

	stats, err := h.trackingService.Stats(ctx, r.PathValue("playerKey"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playerStatsResponse{
		PlayerKey:       stats.PlayerKey,
		FirstSeen:       stats.FirstSeen,
		LastSeen:        stats.LastSeen,
		OccurrenceCount: stats.OccurrenceCount,
	})
}

func (h *Handler) GetPlayerDetails(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerDetails")
	defer span.End()

	details, err := h.trackingService.Details(ctx, r.PathValue("playerKey"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, details)
}

func (h *Handler) ResolvePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResolvePlayer")
	defer span.End()

	resolution, err := h.identityService.Resolve(ctx, r.URL.Query().Get("name"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, resolution)
}
