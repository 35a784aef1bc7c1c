package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/oddsmith/playerident/internal/config"
	"github.com/oddsmith/playerident/internal/infrastructure/repository/postgres"
	"github.com/oddsmith/playerident/internal/interfaces/httpapi"
	"github.com/oddsmith/playerident/internal/platform/cache"
	"github.com/oddsmith/playerident/internal/platform/logging"
	"github.com/oddsmith/playerident/internal/usecase"
)

const dbPingTimeout = 5 * time.Second

// OpenDatabase connects to Postgres with OpenTelemetry instrumentation
// and verifies the connection before returning it.
func OpenDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// NewHTTPServer wires repositories, services, and the HTTP router into a
// ready-to-run server.
func NewHTTPServer(cfg config.Config, logger *logging.Logger, db *sqlx.DB) (*http.Server, error) {
	sightingRepo := postgres.NewSightingRepository(db)
	mappingRepo := postgres.NewMappingRepository(db)

	store := cache.NewDisabledStore()
	if cfg.CacheEnabled {
		store = cache.NewStore(cfg.CacheTTL)
	}

	identitySvc := usecase.NewIdentityService(mappingRepo, sightingRepo, store)
	trackingSvc := usecase.NewTrackingService(sightingRepo, identitySvc, cfg.TrackMaxAttempts)
	suggestionSvc := usecase.NewSuggestionService(sightingRepo, mappingRepo, identitySvc, store)
	suggestionSvc.SetScanDefaults(cfg.SuggestMinScore, cfg.SuggestMaxWorkers)
	maintenanceSvc := usecase.NewMaintenanceService(sightingRepo, mappingRepo, store)

	handler := httpapi.NewHandler(trackingSvc, identitySvc, suggestionSvc, maintenanceSvc, logger)
	router := httpapi.NewRouter(handler, logger.Named("http"), cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}
