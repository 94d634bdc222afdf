package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/harborchat/harbor/internal/authz"
	"github.com/harborchat/harbor/internal/shared"
)

// GrantCache invalidates cached permission sets after grant-changing writes.
// A nil implementation is tolerated.
type GrantCache interface {
	Bump(ctx context.Context) error
}

// Service is the role lifecycle manager. It creates default roles for new
// communities and for the instance, manages custom roles under the lifecycle
// invariants, and owns user-role assignments.
type Service struct {
	repo   Repository
	logger *slog.Logger
	cache  GrantCache
}

// NewService builds Service instance. cache may be nil.
func NewService(repo Repository, logger *slog.Logger, cache GrantCache) *Service {
	return &Service{repo: repo, logger: logger, cache: cache}
}

// BootstrapCommunityRoles creates the default role tiers for a new community
// in a single transaction and returns the id of the Admin-tier role, which
// callers assign to the community creator. It must be called exactly once per
// community, at creation time.
func (s *Service) BootstrapCommunityRoles(ctx context.Context, communityID string) (string, error) {
	if communityID == "" {
		return "", fmt.Errorf("%w: community id is required", shared.ErrValidation)
	}

	var adminRoleID string
	err := s.repo.InTx(ctx, func(ctx context.Context, repo Repository) error {
		for _, tmpl := range CommunityTemplates() {
			role := Role{
				ID:        uuid.NewString(),
				Name:      tmpl.Name,
				Scope:     authz.Community(communityID),
				Actions:   tmpl.Actions,
				IsDefault: true,
			}
			if err := repo.CreateRole(ctx, role); err != nil {
				return fmt.Errorf("bootstrap %s role for community %s: %w", tmpl.Name, communityID, err)
			}
			if tmpl.Name == NameAdmin {
				adminRoleID = role.ID
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return adminRoleID, nil
}

// EnsureDefaultInstanceRoles creates any missing instance-scoped default
// roles. It is idempotent and runs at process startup; the caller logs and
// swallows failures so a transient store issue never blocks boot.
func (s *Service) EnsureDefaultInstanceRoles(ctx context.Context) error {
	return s.repo.InTx(ctx, func(ctx context.Context, repo Repository) error {
		for _, tmpl := range InstanceTemplates() {
			_, err := repo.RoleByName(ctx, authz.Instance, tmpl.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("lookup instance role %q: %w", tmpl.Name, err)
			}
			role := Role{
				ID:        uuid.NewString(),
				Name:      tmpl.Name,
				Scope:     authz.Instance,
				Actions:   tmpl.Actions,
				IsDefault: true,
			}
			if err := repo.CreateRole(ctx, role); err != nil {
				return fmt.Errorf("create instance role %q: %w", tmpl.Name, err)
			}
			s.logger.Info("created default instance role", slog.String("role", tmpl.Name))
		}
		return nil
	})
}

// PurgeCommunityRoles removes every role of a community, defaults included.
// It exists for provisioning compensation: when community creation fails after
// the role bootstrap committed, the roles must not outlive the community
// record. It is not part of the regular lifecycle.
func (s *Service) PurgeCommunityRoles(ctx context.Context, communityID string) error {
	if communityID == "" {
		return fmt.Errorf("%w: community id is required", shared.ErrValidation)
	}
	return s.repo.InTx(ctx, func(ctx context.Context, repo Repository) error {
		list, err := repo.RolesInScope(ctx, authz.Community(communityID))
		if err != nil {
			return fmt.Errorf("list roles for community %s: %w", communityID, err)
		}
		for _, role := range list {
			if err := repo.DeleteRole(ctx, role.ID); err != nil {
				return fmt.Errorf("purge role %s: %w", role.ID, err)
			}
		}
		return nil
	})
}

// CreateCustomRole creates a non-default role in the given scope.
func (s *Service) CreateCustomRole(ctx context.Context, scope authz.Scope, name string, actions []authz.Action) (*Role, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", shared.ErrValidation)
	}
	if err := authz.ValidateActions(actions); err != nil {
		return nil, err
	}

	if _, err := s.repo.RoleByName(ctx, scope, name); err == nil {
		return nil, fmt.Errorf("role %q already exists in %s: %w", name, scope, shared.ErrConflict)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("lookup role by name: %w", err)
	}

	role := Role{
		ID:      uuid.NewString(),
		Name:    name,
		Scope:   scope,
		Actions: actions,
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return &role, nil
}

// UpdateRole applies a partial update. Default roles accept action changes but
// never a rename; renames of custom roles re-check name uniqueness within the
// scope, excluding the role itself.
func (s *Service) UpdateRole(ctx context.Context, roleID string, scope authz.Scope, patch RolePatch) (*Role, error) {
	role, err := s.roleInScope(ctx, roleID, scope)
	if err != nil {
		return nil, err
	}

	if patch.Actions != nil {
		if err := authz.ValidateActions(*patch.Actions); err != nil {
			return nil, err
		}
		role.Actions = *patch.Actions
	}

	if patch.Name != nil && *patch.Name != role.Name {
		if role.IsDefault {
			return nil, fmt.Errorf("default role %q cannot be renamed: %w", role.Name, shared.ErrInvariant)
		}
		if *patch.Name == "" {
			return nil, fmt.Errorf("%w: role name is required", shared.ErrValidation)
		}
		existing, err := s.repo.RoleByName(ctx, scope, *patch.Name)
		if err == nil && existing.ID != role.ID {
			return nil, fmt.Errorf("role %q already exists in %s: %w", *patch.Name, scope, shared.ErrConflict)
		}
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("lookup role by name: %w", err)
		}
		role.Name = *patch.Name
	}

	if err := s.repo.UpdateRole(ctx, *role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	s.invalidateGrants(ctx)
	return role, nil
}

// DeleteRole removes a custom role. Default roles and roles with live
// assignments are protected; assignments must be removed first, they are
// never cascade-deleted.
func (s *Service) DeleteRole(ctx context.Context, roleID string, scope authz.Scope) error {
	role, err := s.roleInScope(ctx, roleID, scope)
	if err != nil {
		return err
	}
	if role.IsDefault {
		return fmt.Errorf("default role %q cannot be deleted: %w", role.Name, shared.ErrInvariant)
	}

	count, err := s.repo.AssignmentCountForRole(ctx, roleID)
	if err != nil {
		return fmt.Errorf("count assignments: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("role %q is still assigned to %d user(s): %w", role.Name, count, shared.ErrInvariant)
	}

	if err := s.repo.DeleteRole(ctx, roleID); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}

// Assign grants a role to a user within the role's scope. An identical
// (user, role, scope) assignment is rejected as a conflict in both scope
// kinds.
func (s *Service) Assign(ctx context.Context, userID, roleID string, scope authz.Scope) (*Assignment, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrValidation)
	}
	if _, err := s.roleInScope(ctx, roleID, scope); err != nil {
		return nil, err
	}

	if _, err := s.repo.Assignment(ctx, userID, roleID, scope); err == nil {
		return nil, fmt.Errorf("user %s already holds this role in %s: %w", userID, scope, shared.ErrConflict)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("lookup assignment: %w", err)
	}

	assignment := Assignment{
		ID:     uuid.NewString(),
		UserID: userID,
		RoleID: roleID,
		Scope:  scope,
	}
	if err := s.repo.CreateAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	s.invalidateGrants(ctx)
	return &assignment, nil
}

// Unassign removes a user's role assignment.
func (s *Service) Unassign(ctx context.Context, userID, roleID string, scope authz.Scope) error {
	assignment, err := s.repo.Assignment(ctx, userID, roleID, scope)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("user %s does not hold this role in %s: %w", userID, scope, shared.ErrNotFound)
		}
		return fmt.Errorf("lookup assignment: %w", err)
	}
	if err := s.repo.DeleteAssignment(ctx, assignment.ID); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	s.invalidateGrants(ctx)
	return nil
}

// ListRoles returns all roles in a scope.
func (s *Service) ListRoles(ctx context.Context, scope authz.Scope) ([]Role, error) {
	return s.repo.RolesInScope(ctx, scope)
}

// Role returns a single role, scoped.
func (s *Service) Role(ctx context.Context, roleID string, scope authz.Scope) (*Role, error) {
	return s.roleInScope(ctx, roleID, scope)
}

// RoleByName returns the role with the given name in a scope.
func (s *Service) RoleByName(ctx context.Context, scope authz.Scope, name string) (*Role, error) {
	return s.repo.RoleByName(ctx, scope, name)
}

// RolesForUser returns the roles a user holds in a scope.
func (s *Service) RolesForUser(ctx context.Context, userID string, scope authz.Scope) ([]Role, error) {
	assignments, err := s.repo.AssignmentsForUser(ctx, userID, scope)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	result := make([]Role, 0, len(assignments))
	for _, a := range assignments {
		role, err := s.repo.RoleByID(ctx, a.RoleID)
		if err != nil {
			return nil, fmt.Errorf("load role %s: %w", a.RoleID, err)
		}
		result = append(result, *role)
	}
	return result, nil
}

// UsersForRole returns the ids of users holding a role.
func (s *Service) UsersForRole(ctx context.Context, roleID string, scope authz.Scope) ([]string, error) {
	if _, err := s.roleInScope(ctx, roleID, scope); err != nil {
		return nil, err
	}
	return s.repo.UsersForRole(ctx, roleID)
}

// roleInScope loads a role and verifies it belongs to the given scope. A role
// from another scope is reported as not found, not as forbidden, so callers
// cannot probe other communities' role ids.
func (s *Service) roleInScope(ctx context.Context, roleID string, scope authz.Scope) (*Role, error) {
	if roleID == "" {
		return nil, fmt.Errorf("%w: role id is required", shared.ErrValidation)
	}
	role, err := s.repo.RoleByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("role %s: %w", roleID, shared.ErrNotFound)
		}
		return nil, fmt.Errorf("load role %s: %w", roleID, err)
	}
	if role.Scope != scope {
		return nil, fmt.Errorf("role %s not in %s: %w", roleID, scope, shared.ErrNotFound)
	}
	return role, nil
}

func (s *Service) invalidateGrants(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump grant cache", slog.Any("error", err))
	}
}
