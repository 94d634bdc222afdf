package authz

import (
	"context"
	"fmt"
)

// GrantSource supplies the flattened action grants a user holds in a scope:
// the union of the action sets of every role assigned to the user there.
type GrantSource interface {
	ActionsForUser(ctx context.Context, userID string, scope Scope) ([]Action, error)
}

// Evaluator answers "may user U perform actions A on resource R of kind K".
// It is stateless and safe for concurrent use; consistency is delegated to the
// backing store.
type Evaluator struct {
	grants   GrantSource
	resolver *Resolver
	dir      Directory
	cache    *Cache
}

// NewEvaluator builds an Evaluator. The cache is optional; pass nil to load
// grants from the source on every check.
func NewEvaluator(grants GrantSource, dir Directory, cache *Cache) *Evaluator {
	return &Evaluator{
		grants:   grants,
		resolver: NewResolver(dir),
		dir:      dir,
		cache:    cache,
	}
}

// Verify reports whether the user holds every required action on the resource.
// Business ambiguity (missing resources, unknown kinds, empty grants) resolves
// to false; only store failures surface as errors so callers can distinguish
// an outage from a denial.
func (e *Evaluator) Verify(ctx context.Context, userID, resourceID string, kind ResourceKind, required ...Action) (bool, error) {
	if userID == "" {
		return false, nil
	}

	if kind == KindInstance {
		return e.verifyScope(ctx, userID, Instance, required)
	}

	resolution, err := e.resolver.ResolveScope(ctx, resourceID, kind)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	// DM resources are authorized by group membership alone; roles never apply.
	if resolution.DMGroupID != "" {
		member, err := e.dir.DMGroupMember(ctx, userID, resolution.DMGroupID)
		if err != nil {
			if IsNotFound(err) {
				return false, nil
			}
			return false, fmt.Errorf("dm membership %s: %w", resolution.DMGroupID, err)
		}
		return member, nil
	}

	return e.verifyScope(ctx, userID, resolution.Scope, required)
}

func (e *Evaluator) verifyScope(ctx context.Context, userID string, scope Scope, required []Action) (bool, error) {
	actions, err := e.loadActions(ctx, userID, scope)
	if err != nil {
		return false, fmt.Errorf("load grants for %s in %s: %w", userID, scope, err)
	}
	return NewActionSet(actions...).ContainsAll(required), nil
}

func (e *Evaluator) loadActions(ctx context.Context, userID string, scope Scope) ([]Action, error) {
	if e.cache == nil {
		return e.grants.ActionsForUser(ctx, userID, scope)
	}
	return e.cache.Actions(ctx, userID, scope, func(ctx context.Context) ([]Action, error) {
		return e.grants.ActionsForUser(ctx, userID, scope)
	})
}
