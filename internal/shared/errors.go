package shared

import "errors"

var (
	// ErrNotFound indicates the referenced role, assignment, or resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness rule was violated (duplicate role name, duplicate assignment).
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates the caller supplied an invalid payload.
	ErrValidation = errors.New("validation failed")
	// ErrInvariant indicates the operation would break a lifecycle rule
	// (renaming or deleting a default role, deleting a role that is still assigned).
	ErrInvariant = errors.New("invariant violation")
	// ErrForbidden indicates the actor lacks the required permissions.
	ErrForbidden = errors.New("forbidden")
)
