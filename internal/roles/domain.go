// Package roles manages the role model: default role templates, custom roles,
// and the assignment of users to roles, in community and instance scopes.
package roles

import (
	"time"

	"github.com/harborchat/harbor/internal/authz"
)

// Role is a named, scoped bundle of actions. Default roles are created
// automatically when their scope comes into existence; their action set may be
// edited but their name and existence are fixed.
type Role struct {
	ID        string
	Name      string
	Scope     authz.Scope
	Actions   []authz.Action
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Assignment records that a user holds a role within a scope. The tuple
// (UserID, RoleID, Scope) is unique.
type Assignment struct {
	ID        string
	UserID    string
	RoleID    string
	Scope     authz.Scope
	CreatedAt time.Time
}

// RolePatch carries a partial role update; nil fields are left untouched.
type RolePatch struct {
	Name    *string
	Actions *[]authz.Action
}
