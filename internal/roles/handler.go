package roles

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harborchat/harbor/internal/authz"
	"github.com/harborchat/harbor/internal/platform/httpx"
	"github.com/harborchat/harbor/internal/shared"
)

// Handler exposes role and assignment management endpoints.
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

// MountInstanceRoutes registers instance-scope role routes.
func (h *Handler) MountInstanceRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireInstance(authz.ActionInstanceRoleManage))
		r.Get("/", h.scoped(instanceScope, h.listRoles))
		r.Post("/", h.scoped(instanceScope, h.createRole))
		r.Get("/{roleID}", h.scoped(instanceScope, h.getRole))
		r.Patch("/{roleID}", h.scoped(instanceScope, h.updateRole))
		r.Delete("/{roleID}", h.scoped(instanceScope, h.deleteRole))
		r.Get("/{roleID}/assignments", h.scoped(instanceScope, h.listAssignees))
		r.Post("/{roleID}/assignments", h.scoped(instanceScope, h.assign))
		r.Delete("/{roleID}/assignments/{userID}", h.scoped(instanceScope, h.unassign))
	})
}

// MountCommunityRoutes registers community-scope role routes; the router
// mounts them under a {communityID} path.
func (h *Handler) MountCommunityRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireCommunity("communityID", authz.ActionCommunityUpdate))
		r.Get("/", h.scoped(communityScope, h.listRoles))
		r.Post("/", h.scoped(communityScope, h.createRole))
		r.Get("/{roleID}", h.scoped(communityScope, h.getRole))
		r.Patch("/{roleID}", h.scoped(communityScope, h.updateRole))
		r.Delete("/{roleID}", h.scoped(communityScope, h.deleteRole))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireCommunity("communityID", authz.ActionMemberRoleAssign))
		r.Get("/{roleID}/assignments", h.scoped(communityScope, h.listAssignees))
		r.Post("/{roleID}/assignments", h.scoped(communityScope, h.assign))
		r.Delete("/{roleID}/assignments/{userID}", h.scoped(communityScope, h.unassign))
	})
}

// MountUserRoutes registers read-only "roles held by user" routes.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/{userID}/roles", h.listUserRoles)
}

func instanceScope(*http.Request) authz.Scope {
	return authz.Instance
}

func communityScope(r *http.Request) authz.Scope {
	return authz.Community(chi.URLParam(r, "communityID"))
}

func (h *Handler) scoped(scope func(*http.Request) authz.Scope, fn func(http.ResponseWriter, *http.Request, authz.Scope)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, scope(r))
	}
}

type roleResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Scope     string    `json:"scope"`
	Actions   []string  `json:"actions"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toRoleResponse(role Role) roleResponse {
	actions := make([]string, len(role.Actions))
	for i, a := range role.Actions {
		actions[i] = string(a)
	}
	return roleResponse{
		ID:        role.ID,
		Name:      role.Name,
		Scope:     role.Scope.String(),
		Actions:   actions,
		IsDefault: role.IsDefault,
		CreatedAt: role.CreatedAt,
		UpdatedAt: role.UpdatedAt,
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request, scope authz.Scope) {
	list, err := h.service.ListRoles(r.Context(), scope)
	if err != nil {
		h.logger.Error("list roles", slog.String("scope", scope.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, len(list))
	for i, role := range list {
		out[i] = toRoleResponse(role)
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createRoleRequest struct {
	Name    string   `json:"name" validate:"required"`
	Actions []string `json:"actions" validate:"required,min=1"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request, scope authz.Scope) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	role, err := h.service.CreateCustomRole(r.Context(), scope, req.Name, toActions(req.Actions))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(*role))
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request, scope authz.Scope) {
	role, err := h.service.Role(r.Context(), chi.URLParam(r, "roleID"), scope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(*role))
}

type updateRoleRequest struct {
	Name    *string   `json:"name"`
	Actions *[]string `json:"actions"`
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request, scope authz.Scope) {
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}

	patch := RolePatch{Name: req.Name}
	if req.Actions != nil {
		actions := toActions(*req.Actions)
		patch.Actions = &actions
	}

	role, err := h.service.UpdateRole(r.Context(), chi.URLParam(r, "roleID"), scope, patch)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(*role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request, scope authz.Scope) {
	if err := h.service.DeleteRole(r.Context(), chi.URLParam(r, "roleID"), scope); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAssignees(w http.ResponseWriter, r *http.Request, scope authz.Scope) {
	users, err := h.service.UsersForRole(r.Context(), chi.URLParam(r, "roleID"), scope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string][]string{"user_ids": users})
}

type assignRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request, scope authz.Scope) {
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	assignment, err := h.service.Assign(r.Context(), req.UserID, chi.URLParam(r, "roleID"), scope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{
		"id":      assignment.ID,
		"user_id": assignment.UserID,
		"role_id": assignment.RoleID,
		"scope":   assignment.Scope.String(),
	})
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request, scope authz.Scope) {
	err := h.service.Unassign(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "roleID"), scope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listUserRoles lets users read their own roles; reading someone else's
// requires the instance user.view action.
func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if actor := shared.ActorFromContext(r.Context()); actor != userID {
		allowed, err := h.guard.Evaluator.Verify(r.Context(), actor, "", authz.KindInstance, authz.ActionUserView)
		if err != nil {
			h.logger.Error("verify user.view", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if !allowed {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing user.view")
			return
		}
	}

	scope := authz.Instance
	if communityID := r.URL.Query().Get("community_id"); communityID != "" {
		scope = authz.Community(communityID)
	}
	list, err := h.service.RolesForUser(r.Context(), userID, scope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, len(list))
	for i, role := range list {
		out[i] = toRoleResponse(role)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func toActions(values []string) []authz.Action {
	actions := make([]authz.Action, len(values))
	for i, v := range values {
		actions[i] = authz.Action(v)
	}
	return actions
}
