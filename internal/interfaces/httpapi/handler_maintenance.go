package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) PurgeContextFreePlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PurgeContextFreePlayers")
	defer span.End()

	dryRun := strings.EqualFold(r.URL.Query().Get("dry_run"), "true")

	result, err := h.maintenanceService.PurgeContextFree(ctx, dryRun)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ClearSkippedPairs(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearSkippedPairs")
	defer span.End()

	removed, err := h.maintenanceService.ClearSkippedPairs(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]int64{"removed": removed})
}

func (h *Handler) GetStoreTotals(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetStoreTotals")
	defer span.End()

	totals, err := h.maintenanceService.Totals(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, totals)
}

// ExportSnapshot streams the raw snapshot JSON rather than the usual
// envelope; the payload is already a complete document.
func (h *Handler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ExportSnapshot")
	defer span.End()

	snapshot, err := h.maintenanceService.ExportSnapshot(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="playerident-snapshot.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snapshot)
}
