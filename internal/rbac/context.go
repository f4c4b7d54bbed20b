package rbac

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the resolved request principal: who is acting, against which
// company, and with which effective role.
type Actor struct {
	UserID    int64
	CompanyID uuid.UUID
	Role      Role
}

type actorContextKey struct{}

// ContextWithActor stores the resolved actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the resolved actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
