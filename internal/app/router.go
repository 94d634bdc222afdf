package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/harborchat/harbor/internal/authz"
	"github.com/harborchat/harbor/internal/communities"
	"github.com/harborchat/harbor/internal/observability"
	"github.com/harborchat/harbor/internal/roles"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	RolesHandler       *roles.Handler
	CommunitiesHandler *communities.Handler
	PermissionsHandler *authz.PermissionsHandler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Harbor defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/instance/roles", params.RolesHandler.MountInstanceRoutes)
			r.Route("/users", params.RolesHandler.MountUserRoutes)
		}
		r.Route("/communities", func(r chi.Router) {
			if params.CommunitiesHandler != nil {
				params.CommunitiesHandler.MountRoutes(r)
			}
			if params.RolesHandler != nil {
				r.Route("/{communityID}/roles", params.RolesHandler.MountCommunityRoutes)
			}
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
