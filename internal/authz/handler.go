package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harborchat/harbor/internal/platform/httpx"
)

// PermissionsHandler exposes the permission check to other platform services.
// The chat gateway calls it before fanning out writes it cannot authorize
// locally.
type PermissionsHandler struct {
	logger    *slog.Logger
	evaluator *Evaluator
	validator *validator.Validate
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, evaluator *Evaluator) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, evaluator: evaluator, validator: validator.New()}
}

// MountRoutes registers permission check routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
}

type checkRequest struct {
	UserID       string   `json:"user_id" validate:"required"`
	ResourceID   string   `json:"resource_id"`
	ResourceKind string   `json:"resource_kind"`
	Actions      []string `json:"actions" validate:"required,min=1"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

func (h *PermissionsHandler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	actions := make([]Action, len(req.Actions))
	for i, a := range req.Actions {
		actions[i] = Action(a)
	}
	if err := ValidateActions(actions); err != nil {
		httpx.RespondError(w, err)
		return
	}

	allowed, err := h.evaluator.Verify(r.Context(), req.UserID, req.ResourceID, ResourceKind(req.ResourceKind), actions...)
	if err != nil {
		h.logger.Error("permission check", slog.String("user", req.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Allowed: allowed})
}
