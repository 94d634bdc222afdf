package roles

import (
	"context"

	"github.com/harborchat/harbor/internal/authz"
)

// Repository defines persistence operations for roles and assignments.
// Implementations return shared.ErrNotFound for missing records and
// shared.ErrConflict for uniqueness violations.
type Repository interface {
	// InTx runs fn against a transaction-scoped repository. Writes made through
	// the inner repository commit or roll back together.
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error

	CreateRole(ctx context.Context, role Role) error
	RoleByID(ctx context.Context, id string) (*Role, error)
	RoleByName(ctx context.Context, scope authz.Scope, name string) (*Role, error)
	RolesInScope(ctx context.Context, scope authz.Scope) ([]Role, error)
	UpdateRole(ctx context.Context, role Role) error
	DeleteRole(ctx context.Context, id string) error

	CreateAssignment(ctx context.Context, assignment Assignment) error
	Assignment(ctx context.Context, userID, roleID string, scope authz.Scope) (*Assignment, error)
	DeleteAssignment(ctx context.Context, id string) error
	AssignmentsForUser(ctx context.Context, userID string, scope authz.Scope) ([]Assignment, error)
	AssignmentCountForRole(ctx context.Context, roleID string) (int64, error)
	UsersForRole(ctx context.Context, roleID string) ([]string, error)

	// ActionsForUser returns the union of the action sets of every role the
	// user holds in the scope, deduplicated. Implements authz.GrantSource.
	ActionsForUser(ctx context.Context, userID string, scope authz.Scope) ([]authz.Action, error)
}
