package roles

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor/internal/authz"
	"github.com/harborchat/harbor/internal/shared"
)

// stubDirectory satisfies authz.Directory; these handlers only evaluate
// instance and community scopes, so nothing resolves through it.
type stubDirectory struct{}

func (stubDirectory) ChannelCommunity(context.Context, string) (string, error) {
	return "", shared.ErrNotFound
}

func (stubDirectory) MessageContainer(context.Context, string) (authz.MessageContainer, error) {
	return authz.MessageContainer{}, shared.ErrNotFound
}

func (stubDirectory) DMGroupMember(context.Context, string, string) (bool, error) {
	return false, nil
}

type handlerFixture struct {
	repo    *mockRepository
	service *Service
	router  chi.Router
}

// newHandlerFixture wires the handler over the in-memory repository with a
// real evaluator, so requests pass through the same guard chain as in
// production. The given actor holds community.update and member.role.assign
// in com-1.
func newHandlerFixture(t *testing.T, actor string) *handlerFixture {
	t.Helper()
	repo := newMockRepository()
	service := NewService(repo, slog.Default(), nil)
	guard := authz.Middleware{
		Evaluator: authz.NewEvaluator(repo, stubDirectory{}, nil),
		Logger:    slog.Default(),
	}
	handler := NewHandler(slog.Default(), service, guard)

	scope := authz.Community("com-1")
	manager := Role{
		ID:    "role-manager",
		Name:  "Manager",
		Scope: scope,
		Actions: []authz.Action{
			authz.ActionCommunityUpdate,
			authz.ActionMemberRoleAssign,
		},
	}
	require.NoError(t, repo.CreateRole(context.Background(), manager))
	require.NoError(t, repo.CreateAssignment(context.Background(), Assignment{
		ID:     "assign-manager",
		UserID: actor,
		RoleID: manager.ID,
		Scope:  scope,
	}))

	r := chi.NewRouter()
	r.Route("/communities/{communityID}/roles", handler.MountCommunityRoutes)
	return &handlerFixture{repo: repo, service: service, router: r}
}

func (f *handlerFixture) do(t *testing.T, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestUpdateRoleEndpoint(t *testing.T) {
	f := newHandlerFixture(t, "admin")
	role, err := f.service.CreateCustomRole(context.Background(), authz.Community("com-1"), "Support", []authz.Action{authz.ActionUserView})
	require.NoError(t, err)

	rr := f.do(t, http.MethodPatch, "/communities/com-1/roles/"+role.ID, "admin",
		`{"name":"Helpdesk"}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated, err := f.repo.RoleByID(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Equal(t, "Helpdesk", updated.Name)
}

func TestUpdateRoleEndpointRejectsUnknownField(t *testing.T) {
	f := newHandlerFixture(t, "admin")
	role, err := f.service.CreateCustomRole(context.Background(), authz.Community("com-1"), "Support", []authz.Action{authz.ActionUserView})
	require.NoError(t, err)

	// "actionz" is a typo for "actions". Lenient decoding would drop it and
	// report success on a no-op update.
	rr := f.do(t, http.MethodPatch, "/communities/com-1/roles/"+role.ID, "admin",
		`{"name":"Helpdesk","actionz":["message.delete"]}`)

	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	unchanged, err := f.repo.RoleByID(context.Background(), role.ID)
	require.NoError(t, err)
	assert.Equal(t, "Support", unchanged.Name)
	assert.Equal(t, role.Actions, unchanged.Actions)
}

func TestCreateRoleEndpointRejectsUnknownField(t *testing.T) {
	f := newHandlerFixture(t, "admin")

	rr := f.do(t, http.MethodPost, "/communities/com-1/roles/", "admin",
		`{"name":"Support","action":["user.view"]}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
}

func TestRoleEndpointsRequireGrant(t *testing.T) {
	f := newHandlerFixture(t, "admin")

	rr := f.do(t, http.MethodPost, "/communities/com-1/roles/", "intruder",
		`{"name":"Support","actions":["user.view"]}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}
