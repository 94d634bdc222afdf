package communities

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harborchat/harbor/internal/authz"
	"github.com/harborchat/harbor/internal/platform/httpx"
	"github.com/harborchat/harbor/internal/shared"
)

// Handler exposes community endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers community routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireInstance(authz.ActionCommunityCreate))
		r.Post("/", h.create)
	})
	r.Get("/{communityID}", h.get)
	r.Post("/{communityID}/members", h.join)
	r.Delete("/{communityID}/members", h.leave)
}

type createCommunityRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createCommunityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ownerID := shared.ActorFromContext(r.Context())
	community, err := h.service.Create(r.Context(), req.Name, ownerID)
	if err != nil {
		h.logger.Error("create community", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{
		"id":       community.ID,
		"name":     community.Name,
		"owner_id": community.OwnerID,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	community, err := h.service.Get(r.Context(), chi.URLParam(r, "communityID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"id":       community.ID,
		"name":     community.Name,
		"owner_id": community.OwnerID,
	})
}

// join adds the requesting user to the community. Invitation checks live in
// the gateway; from Harbor's perspective joining is assigning the Member role.
func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	userID := shared.ActorFromContext(r.Context())
	if userID == "" {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no authenticated user")
		return
	}
	if err := h.service.Join(r.Context(), chi.URLParam(r, "communityID"), userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	userID := shared.ActorFromContext(r.Context())
	if userID == "" {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no authenticated user")
		return
	}
	if err := h.service.Leave(r.Context(), chi.URLParam(r, "communityID"), userID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
