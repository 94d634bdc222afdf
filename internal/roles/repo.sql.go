package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborchat/harbor/internal/authz"
	"github.com/harborchat/harbor/internal/platform/db"
	"github.com/harborchat/harbor/internal/shared"
)

// PGRepository implements Repository using PostgreSQL. Scope is stored in the
// community_id column, with the empty string denoting the instance scope, so
// the (community_id, name) unique index is the composite name-uniqueness
// constraint for both scope kinds.
type PGRepository struct {
	db   db.Querier
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool, pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// InTx runs fn against a transaction-scoped copy of the repository. Calls made
// on an already transaction-bound repository join the ambient transaction.
func (r *PGRepository) InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	if _, ok := r.db.(pgx.Tx); ok {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{db: tx, pool: r.pool})
	})
}

const roleColumns = `id, community_id, name, actions, is_default, created_at, updated_at`

// CreateRole inserts a new role.
func (r *PGRepository) CreateRole(ctx context.Context, role Role) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO roles (id, community_id, name, actions, is_default, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())`,
		role.ID, role.Scope.CommunityID, role.Name, actionsToStrings(role.Actions), role.IsDefault,
	)
	if err != nil {
		return mapPGError("create role", err)
	}
	return nil
}

// RoleByID fetches a role by id.
func (r *PGRepository) RoleByID(ctx context.Context, id string) (*Role, error) {
	row := r.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

// RoleByName fetches a role by name within a scope.
func (r *PGRepository) RoleByName(ctx context.Context, scope authz.Scope, name string) (*Role, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE community_id = $1 AND name = $2`,
		scope.CommunityID, name,
	)
	return scanRole(row)
}

// RolesInScope returns all roles of a scope ordered by creation time.
func (r *PGRepository) RolesInScope(ctx context.Context, scope authz.Scope) ([]Role, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE community_id = $1 ORDER BY created_at, id`,
		scope.CommunityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Role
	for rows.Next() {
		role, err := scanRoleFromRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *role)
	}
	return result, rows.Err()
}

// UpdateRole persists name and actions of an existing role.
func (r *PGRepository) UpdateRole(ctx context.Context, role Role) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE roles SET name = $2, actions = $3, updated_at = now() WHERE id = $1`,
		role.ID, role.Name, actionsToStrings(role.Actions),
	)
	if err != nil {
		return mapPGError("update role", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteRole removes a role record. Assignments are never cascade-deleted; the
// service refuses deletion while any exist.
func (r *PGRepository) DeleteRole(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateAssignment inserts a user-role assignment.
func (r *PGRepository) CreateAssignment(ctx context.Context, assignment Assignment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_role_assignments (id, user_id, role_id, community_id, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		assignment.ID, assignment.UserID, assignment.RoleID, assignment.Scope.CommunityID,
	)
	if err != nil {
		return mapPGError("create assignment", err)
	}
	return nil
}

// Assignment fetches the assignment for (user, role, scope), if any.
func (r *PGRepository) Assignment(ctx context.Context, userID, roleID string, scope authz.Scope) (*Assignment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, role_id, community_id, created_at
		FROM user_role_assignments
		WHERE user_id = $1 AND role_id = $2 AND community_id = $3`,
		userID, roleID, scope.CommunityID,
	)
	var a Assignment
	if err := row.Scan(&a.ID, &a.UserID, &a.RoleID, &a.Scope.CommunityID, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// DeleteAssignment removes an assignment by id.
func (r *PGRepository) DeleteAssignment(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_role_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignmentsForUser returns the user's assignments in a scope.
func (r *PGRepository) AssignmentsForUser(ctx context.Context, userID string, scope authz.Scope) ([]Assignment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, role_id, community_id, created_at
		FROM user_role_assignments
		WHERE user_id = $1 AND community_id = $2
		ORDER BY created_at, id`,
		userID, scope.CommunityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.RoleID, &a.Scope.CommunityID, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// AssignmentCountForRole counts live assignments referencing a role.
func (r *PGRepository) AssignmentCountForRole(ctx context.Context, roleID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM user_role_assignments WHERE role_id = $1`, roleID,
	).Scan(&count)
	return count, err
}

// UsersForRole returns the ids of users holding the role.
func (r *PGRepository) UsersForRole(ctx context.Context, roleID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id FROM user_role_assignments WHERE role_id = $1 ORDER BY created_at, id`,
		roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		users = append(users, userID)
	}
	return users, rows.Err()
}

// ActionsForUser flattens the user's grants in a scope with a single join.
func (r *PGRepository) ActionsForUser(ctx context.Context, userID string, scope authz.Scope) ([]authz.Action, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT unnest(r.actions)
		FROM user_role_assignments a
		JOIN roles r ON r.id = a.role_id
		WHERE a.user_id = $1 AND a.community_id = $2`,
		userID, scope.CommunityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []authz.Action
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return nil, err
		}
		actions = append(actions, authz.Action(action))
	}
	return actions, rows.Err()
}

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	var actions []string
	err := row.Scan(&role.ID, &role.Scope.CommunityID, &role.Name, &actions, &role.IsDefault, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	role.Actions = stringsToActions(actions)
	return &role, nil
}

func scanRoleFromRows(rows pgx.Rows) (*Role, error) {
	var role Role
	var actions []string
	if err := rows.Scan(&role.ID, &role.Scope.CommunityID, &role.Name, &actions, &role.IsDefault, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	role.Actions = stringsToActions(actions)
	return &role, nil
}

func actionsToStrings(actions []authz.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a)
	}
	return out
}

func stringsToActions(values []string) []authz.Action {
	out := make([]authz.Action, len(values))
	for i, v := range values {
		out[i] = authz.Action(v)
	}
	return out
}

// mapPGError translates unique violations into the domain conflict error.
func mapPGError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, shared.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
