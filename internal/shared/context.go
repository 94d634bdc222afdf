package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the authenticated user id in context.
// Authentication itself happens at the gateway; Harbor only consumes the identity.
func ContextWithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, userID)
}

// ActorFromContext extracts the authenticated user id from context.
// Returns an empty string when the request carries no identity.
func ActorFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(actorContextKey{}).(string)
	return userID
}
