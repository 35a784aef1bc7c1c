package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	sonic "github.com/bytedance/sonic"

	"github.com/oddsmith/playerident/internal/domain/candidate"
	"github.com/oddsmith/playerident/internal/usecase"
)

type decideCandidateRequest struct {
	KeyA          string `json:"key_a" validate:"required,min=1,max=256"`
	KeyB          string `json:"key_b" validate:"required,min=1,max=256"`
	Decision      string `json:"decision" validate:"required,oneof=accept skip"`
	PreferredName string `json:"preferred_name" validate:"omitempty,max=256"`
}

type addMappingRequest struct {
	VariantName   string `json:"variant_name" validate:"required,min=1,max=256"`
	PreferredName string `json:"preferred_name" validate:"required,min=1,max=256"`
}

func (h *Handler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListCandidates")
	defer span.End()

	var input usecase.ListCandidatesInput
	query := r.URL.Query()
	if raw := query.Get("min_score"); raw != "" {
		minScore, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: invalid min_score", usecase.ErrInvalidInput))
			return
		}
		input.MinScore = minScore
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(ctx, w, fmt.Errorf("%w: invalid limit", usecase.ErrInvalidInput))
			return
		}
		input.Limit = limit
	}

	candidates, err := h.suggestionService.ListCandidates(ctx, input)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

func (h *Handler) DecideCandidate(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DecideCandidate")
	defer span.End()

	var req decideCandidateRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid request body: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.suggestionService.Decide(ctx, usecase.DecideInput{
		KeyA:          req.KeyA,
		KeyB:          req.KeyB,
		Decision:      candidate.Decision(req.Decision),
		PreferredName: req.PreferredName,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) GetPairConflict(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPairConflict")
	defer span.End()

	query := r.URL.Query()
	conflict, err := h.suggestionService.Conflict(ctx, query.Get("key_a"), query.Get("key_b"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, conflict)
}

func (h *Handler) ListMappings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMappings")
	defer span.End()

	mappings, err := h.identityService.Mappings(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"mappings": mappings,
		"count":    len(mappings),
	})
}

func (h *Handler) AddMapping(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AddMapping")
	defer span.End()

	var req addMappingRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid request body: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	resolution, err := h.identityService.AddMapping(ctx, req.VariantName, req.PreferredName)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, resolution)
}

func (h *Handler) RemoveMapping(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveMapping")
	defer span.End()

	if err := h.identityService.RemoveMapping(ctx, r.PathValue("variantKey")); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "removed"})
}
