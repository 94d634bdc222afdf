package communities

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor/internal/authz"
	"github.com/harborchat/harbor/internal/roles"
	"github.com/harborchat/harbor/internal/shared"
)

// ============================================================================
// MOCKS
// ============================================================================

type mockCommunityRepo struct {
	communities map[string]*Community

	createErr error
}

func newMockCommunityRepo() *mockCommunityRepo {
	return &mockCommunityRepo{communities: make(map[string]*Community)}
}

func (m *mockCommunityRepo) Create(ctx context.Context, c Community) error {
	if m.createErr != nil {
		return m.createErr
	}
	stored := c
	m.communities[c.ID] = &stored
	return nil
}

func (m *mockCommunityRepo) ByID(ctx context.Context, id string) (*Community, error) {
	c, ok := m.communities[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockCommunityRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.communities[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.communities, id)
	return nil
}

var _ Repository = (*mockCommunityRepo)(nil)

// memRoleRepo is a minimal in-memory roles.Repository so the tests can run a
// real roles.Service underneath the community service.
type memRoleRepo struct {
	roles       map[string]*roles.Role
	assignments map[string]*roles.Assignment

	createRoleErr       error
	createAssignmentErr error
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{
		roles:       make(map[string]*roles.Role),
		assignments: make(map[string]*roles.Assignment),
	}
}

func (m *memRoleRepo) InTx(ctx context.Context, fn func(context.Context, roles.Repository) error) error {
	return fn(ctx, m)
}

func (m *memRoleRepo) CreateRole(ctx context.Context, role roles.Role) error {
	if m.createRoleErr != nil {
		return m.createRoleErr
	}
	stored := role
	m.roles[role.ID] = &stored
	return nil
}

func (m *memRoleRepo) RoleByID(ctx context.Context, id string) (*roles.Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *role
	return &copied, nil
}

func (m *memRoleRepo) RoleByName(ctx context.Context, scope authz.Scope, name string) (*roles.Role, error) {
	for _, role := range m.roles {
		if role.Scope == scope && role.Name == name {
			copied := *role
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRoleRepo) RolesInScope(ctx context.Context, scope authz.Scope) ([]roles.Role, error) {
	var result []roles.Role
	for _, role := range m.roles {
		if role.Scope == scope {
			result = append(result, *role)
		}
	}
	return result, nil
}

func (m *memRoleRepo) UpdateRole(ctx context.Context, role roles.Role) error {
	stored := role
	m.roles[role.ID] = &stored
	return nil
}

func (m *memRoleRepo) DeleteRole(ctx context.Context, id string) error {
	delete(m.roles, id)
	return nil
}

func (m *memRoleRepo) CreateAssignment(ctx context.Context, a roles.Assignment) error {
	if m.createAssignmentErr != nil {
		return m.createAssignmentErr
	}
	stored := a
	m.assignments[a.ID] = &stored
	return nil
}

func (m *memRoleRepo) Assignment(ctx context.Context, userID, roleID string, scope authz.Scope) (*roles.Assignment, error) {
	for _, a := range m.assignments {
		if a.UserID == userID && a.RoleID == roleID && a.Scope == scope {
			copied := *a
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRoleRepo) DeleteAssignment(ctx context.Context, id string) error {
	if _, ok := m.assignments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.assignments, id)
	return nil
}

func (m *memRoleRepo) AssignmentsForUser(ctx context.Context, userID string, scope authz.Scope) ([]roles.Assignment, error) {
	var result []roles.Assignment
	for _, a := range m.assignments {
		if a.UserID == userID && a.Scope == scope {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memRoleRepo) AssignmentCountForRole(ctx context.Context, roleID string) (int64, error) {
	var count int64
	for _, a := range m.assignments {
		if a.RoleID == roleID {
			count++
		}
	}
	return count, nil
}

func (m *memRoleRepo) UsersForRole(ctx context.Context, roleID string) ([]string, error) {
	var users []string
	for _, a := range m.assignments {
		if a.RoleID == roleID {
			users = append(users, a.UserID)
		}
	}
	return users, nil
}

func (m *memRoleRepo) ActionsForUser(ctx context.Context, userID string, scope authz.Scope) ([]authz.Action, error) {
	set := authz.NewActionSet()
	for _, a := range m.assignments {
		if a.UserID == userID && a.Scope == scope {
			if role, ok := m.roles[a.RoleID]; ok {
				set.Add(role.Actions...)
			}
		}
	}
	var actions []authz.Action
	for action := range set {
		actions = append(actions, action)
	}
	return actions, nil
}

var _ roles.Repository = (*memRoleRepo)(nil)

type fixture struct {
	service  *Service
	repo     *mockCommunityRepo
	roleRepo *memRoleRepo
}

func newFixture() *fixture {
	repo := newMockCommunityRepo()
	roleRepo := newMemRoleRepo()
	roleService := roles.NewService(roleRepo, slog.Default(), nil)
	return &fixture{
		service:  NewService(repo, roleService, slog.Default()),
		repo:     repo,
		roleRepo: roleRepo,
	}
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateProvisionsRolesAndOwnerAdmin(t *testing.T) {
	f := newFixture()

	community, err := f.service.Create(context.Background(), "Gophers", "owner-1")
	require.NoError(t, err)
	require.NotEmpty(t, community.ID)

	scope := authz.Community(community.ID)
	created, err := f.roleRepo.RolesInScope(context.Background(), scope)
	require.NoError(t, err)
	assert.Len(t, created, 3)

	admin, err := f.roleRepo.RoleByName(context.Background(), scope, roles.NameAdmin)
	require.NoError(t, err)
	_, err = f.roleRepo.Assignment(context.Background(), "owner-1", admin.ID, scope)
	assert.NoError(t, err, "creator must hold the Admin role")
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(context.Background(), "", "owner-1")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.service.Create(context.Background(), "Gophers", "")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRollsBackWhenBootstrapFails(t *testing.T) {
	f := newFixture()
	f.roleRepo.createRoleErr = errors.New("out of disk")

	_, err := f.service.Create(context.Background(), "Gophers", "owner-1")
	require.Error(t, err)

	// The half-created community record must be gone.
	assert.Empty(t, f.repo.communities)
}

func TestCreateRollsBackRolesWhenOwnerAssignFails(t *testing.T) {
	f := newFixture()
	f.roleRepo.createAssignmentErr = errors.New("out of disk")

	_, err := f.service.Create(context.Background(), "Gophers", "owner-1")
	require.Error(t, err)

	// The bootstrap committed before the assignment failed; compensation must
	// remove the roles too, not just the community record.
	assert.Empty(t, f.repo.communities)
	assert.Empty(t, f.roleRepo.roles)
}

func TestJoinAssignsMemberRole(t *testing.T) {
	f := newFixture()

	community, err := f.service.Create(context.Background(), "Gophers", "owner-1")
	require.NoError(t, err)

	require.NoError(t, f.service.Join(context.Background(), community.ID, "u1"))

	scope := authz.Community(community.ID)
	member, err := f.roleRepo.RoleByName(context.Background(), scope, roles.NameMember)
	require.NoError(t, err)
	_, err = f.roleRepo.Assignment(context.Background(), "u1", member.ID, scope)
	assert.NoError(t, err)
}

func TestJoinTwiceConflicts(t *testing.T) {
	f := newFixture()

	community, err := f.service.Create(context.Background(), "Gophers", "owner-1")
	require.NoError(t, err)

	require.NoError(t, f.service.Join(context.Background(), community.ID, "u1"))
	err = f.service.Join(context.Background(), community.ID, "u1")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestJoinUnknownCommunity(t *testing.T) {
	f := newFixture()

	err := f.service.Join(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLeaveRemovesMembership(t *testing.T) {
	f := newFixture()

	community, err := f.service.Create(context.Background(), "Gophers", "owner-1")
	require.NoError(t, err)
	require.NoError(t, f.service.Join(context.Background(), community.ID, "u1"))

	require.NoError(t, f.service.Leave(context.Background(), community.ID, "u1"))

	// Leaving again reports the missing membership.
	err = f.service.Leave(context.Background(), community.ID, "u1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
