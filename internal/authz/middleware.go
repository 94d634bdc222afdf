package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborchat/harbor/internal/shared"
)

// DecisionRecorder receives the outcome of every middleware-level permission
// check, typically for metrics.
type DecisionRecorder interface {
	RecordAuthzDecision(allowed bool)
}

// Middleware wires authorization checks into HTTP handlers. The actor id is
// taken from the request context; the gateway that authenticates requests is
// responsible for putting it there.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
	Metrics   DecisionRecorder
}

// RequireInstance ensures the actor holds every action in the instance scope.
func (m Middleware) RequireInstance(actions ...Action) func(http.Handler) http.Handler {
	return m.require(func(*http.Request) (string, ResourceKind) {
		return "", KindInstance
	}, actions)
}

// RequireCommunity ensures the actor holds every action in the community
// identified by the named URL parameter.
func (m Middleware) RequireCommunity(urlParam string, actions ...Action) func(http.Handler) http.Handler {
	return m.require(func(r *http.Request) (string, ResourceKind) {
		return chi.URLParam(r, urlParam), KindCommunity
	}, actions)
}

func (m Middleware) require(target func(*http.Request) (string, ResourceKind), actions []Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := shared.ActorFromContext(r.Context())
			if userID == "" {
				m.deny(w)
				return
			}
			resourceID, kind := target(r)
			allowed, err := m.Evaluator.Verify(r.Context(), userID, resourceID, kind, actions...)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz check", slog.String("user", userID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if m.Metrics != nil {
				m.Metrics.RecordAuthzDecision(allowed)
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter) {
	if m.Metrics != nil {
		m.Metrics.RecordAuthzDecision(false)
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
