package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/oddsmith/playerident/internal/platform/logging"
	"github.com/oddsmith/playerident/internal/usecase"
)

type Handler struct {
	trackingService    *usecase.TrackingService
	identityService    *usecase.IdentityService
	suggestionService  *usecase.SuggestionService
	maintenanceService *usecase.MaintenanceService
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	trackingService *usecase.TrackingService,
	identityService *usecase.IdentityService,
	suggestionService *usecase.SuggestionService,
	maintenanceService *usecase.MaintenanceService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		trackingService:    trackingService,
		identityService:    identityService,
		suggestionService:  suggestionService,
		maintenanceService: maintenanceService,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
