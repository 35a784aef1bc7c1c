package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/oddsmith/playerident/internal/infrastructure/repository/memory"
	"github.com/oddsmith/playerident/internal/platform/cache"
	"github.com/oddsmith/playerident/internal/platform/logging"
	"github.com/oddsmith/playerident/internal/usecase"
)

const testJobToken = "test-job-token"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	sightingRepo := memory.NewSightingRepository()
	mappingRepo := memory.NewMappingRepository()
	store := cache.NewStore(time.Minute)
	identity := usecase.NewIdentityService(mappingRepo, sightingRepo, store)
	handler := NewHandler(
		usecase.NewTrackingService(sightingRepo, identity, 3),
		identity,
		usecase.NewSuggestionService(sightingRepo, mappingRepo, identity, store),
		usecase.NewMaintenanceService(sightingRepo, mappingRepo, store),
		logging.NewNop(),
	)
	return NewRouter(handler, logging.NewNop(), []string{"*"}, testJobToken)
}

func doJSON(t *testing.T, router http.Handler, method, target, body string, internal bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if internal {
		req.Header.Set("X-Internal-Job-Token", testJobToken)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return envelope
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestTrackAndResolveFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/sightings",
		`{"raw_name":"José Álvarez","site_name":"siteA","team_name":"arsenal"}`, false)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("track status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/players/resolve?name=Jos%C3%A9%20%C3%81lvarez", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve status = %d body=%s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data envelope: %v", envelope)
	}
	if data["player_key"] != "jose alvarez" {
		t.Fatalf("unexpected resolution: %v", data)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/players/jose%20alvarez/stats", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestTrackValidation(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/sightings", `{"site_name":"siteA"}`, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestStatsNotFoundStatus(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/players/nobody/stats", "", false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestInternalRoutesRequireToken(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/v1/internal/candidates", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/internal/candidates", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCandidateDecisionFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	for _, body := range []string{
		`{"raw_name":"B. Fernandes","site_name":"siteA","team_name":"united"}`,
		`{"raw_name":"Bruno Fernandes","site_name":"siteB","team_name":"united"}`,
	} {
		rec := doJSON(t, router, http.MethodPost, "/v1/sightings", body, false)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("track status = %d body=%s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/v1/internal/candidates", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("candidates status = %d body=%s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	if data["count"].(float64) != 1 {
		t.Fatalf("expected one candidate: %v", data)
	}

	decision := `{"key_a":"b fernandes","key_b":"bruno fernandes","decision":"accept","preferred_name":"Bruno Fernandes"}`
	rec = doJSON(t, router, http.MethodPost, "/v1/internal/candidates/decisions", decision, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("decision status = %d body=%s", rec.Code, rec.Body.String())
	}

	// A second verdict on the same pair conflicts.
	rec = doJSON(t, router, http.MethodPost, "/v1/internal/candidates/decisions", decision, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeat decision, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/players/resolve?name=B.+Fernandes", "", false)
	envelope = decodeEnvelope(t, rec)
	data = envelope["data"].(map[string]any)
	if data["player_key"] != "bruno fernandes" || data["mapped"] != true {
		t.Fatalf("variant did not resolve after accept: %v", data)
	}
}

func TestExportSnapshotEndpoint(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/sightings",
		`{"raw_name":"John Smith","site_name":"siteA","team_name":"arsenal"}`, false)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("track status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/internal/export", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d body=%s", rec.Code, rec.Body.String())
	}

	var snapshot usecase.Snapshot
	if err := sonic.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snapshot.Players) != 1 {
		t.Fatalf("unexpected snapshot players: %+v", snapshot.Players)
	}
}

func TestPurgeEndpointDryRun(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/sightings",
		`{"raw_name":"Ghost Player","site_name":"siteA"}`, false)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("track status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/v1/internal/maintenance/purge-context-free?dry_run=true", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("purge status = %d body=%s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	if data["players_removed"].(float64) != 1 || data["dry_run"] != true {
		t.Fatalf("unexpected purge result: %v", data)
	}
}

func TestTrackDerivesTeamFromFixtureSides(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/v1/sightings",
		`{"raw_name":"John Smith","site_name":"siteA","home_team":"Arsenal","away_team":"Chelsea","position":"away"}`, false)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("track status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/players/john%20smith", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("details status = %d body=%s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	data, ok := envelope["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data envelope: %v", envelope)
	}
	teams, _ := data["teams"].([]any)
	if len(teams) != 1 || teams[0] != "Chelsea" {
		t.Fatalf("unexpected teams: %v", data["teams"])
	}
	fixtures, _ := data["fixtures"].([]any)
	if len(fixtures) != 1 || fixtures[0] != "Arsenal v Chelsea" {
		t.Fatalf("unexpected fixtures: %v", data["fixtures"])
	}
}
