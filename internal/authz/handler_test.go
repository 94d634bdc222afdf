package authz

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func newCheckServer(t *testing.T, grants *mockGrantSource, dir *mockDirectory) *httptest.Server {
	t.Helper()
	handler := NewPermissionsHandler(slog.Default(), NewEvaluator(grants, dir, nil))
	r := chi.NewRouter()
	r.Route("/permissions", handler.MountRoutes)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func postCheck(t *testing.T, server *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+"/permissions/check", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCheckAllowed(t *testing.T) {
	grants := newMockGrantSource()
	grants.grant("u1", Instance, ActionUserView)
	server := newCheckServer(t, grants, newMockDirectory())

	resp := postCheck(t, server, `{"user_id":"u1","resource_kind":"instance","actions":["user.view"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out checkResponse
	require.NoError(t, decodeBody(resp, &out))
	assert.True(t, out.Allowed)
}

func TestCheckDeniedIsStillOK(t *testing.T) {
	server := newCheckServer(t, newMockGrantSource(), newMockDirectory())

	// A denial is a successful evaluation, not an HTTP error.
	resp := postCheck(t, server, `{"user_id":"u1","resource_kind":"instance","actions":["user.view"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out checkResponse
	require.NoError(t, decodeBody(resp, &out))
	assert.False(t, out.Allowed)
}

func TestCheckRejectsUnknownAction(t *testing.T) {
	server := newCheckServer(t, newMockGrantSource(), newMockDirectory())

	resp := postCheck(t, server, `{"user_id":"u1","resource_kind":"instance","actions":["fly.to.moon"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckRejectsMissingFields(t *testing.T) {
	server := newCheckServer(t, newMockGrantSource(), newMockDirectory())

	for name, body := range map[string]string{
		"no user":     `{"resource_kind":"instance","actions":["user.view"]}`,
		"no actions":  `{"user_id":"u1","resource_kind":"instance"}`,
		"empty list":  `{"user_id":"u1","resource_kind":"instance","actions":[]}`,
		"broken json": `{"user_id":`,
	} {
		resp := postCheck(t, server, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
	}
}

func TestCheckMissingResourceDenies(t *testing.T) {
	grants := newMockGrantSource()
	grants.grant("u1", Community("com-1"), ActionChannelRead)
	server := newCheckServer(t, grants, newMockDirectory())

	resp := postCheck(t, server, `{"user_id":"u1","resource_id":"ghost","resource_kind":"channel","actions":["channel.read"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out checkResponse
	require.NoError(t, decodeBody(resp, &out))
	assert.False(t, out.Allowed)
}
