package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/sightings", handler.TrackSighting)
	mux.HandleFunc("GET /v1/players/resolve", handler.ResolvePlayer)
	mux.HandleFunc("GET /v1/players/{playerKey}", handler.GetPlayerDetails)
	mux.HandleFunc("GET /v1/players/{playerKey}/stats", handler.GetPlayerStats)
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("GET /v1/internal/candidates", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListCandidates)))
	mux.Handle("POST /v1/internal/candidates/decisions", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.DecideCandidate)))
	mux.Handle("GET /v1/internal/candidates/conflict", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.GetPairConflict)))
	mux.Handle("GET /v1/internal/mappings", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListMappings)))
	mux.Handle("POST /v1/internal/mappings", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.AddMapping)))
	mux.Handle("DELETE /v1/internal/mappings/{variantKey}", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RemoveMapping)))
	mux.Handle("POST /v1/internal/maintenance/purge-context-free", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.PurgeContextFreePlayers)))
	mux.Handle("POST /v1/internal/maintenance/clear-skipped", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ClearSkippedPairs)))
	mux.Handle("GET /v1/internal/totals", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.GetStoreTotals)))
	mux.Handle("GET /v1/internal/export", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ExportSnapshot)))
}
