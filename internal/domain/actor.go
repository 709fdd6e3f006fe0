package domain

import "context"

// Actor is the operator on whose behalf a request runs.
type Actor struct {
	ID   string
	Name string
	Role string
}

type actorKey struct{}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx, if any.
func ActorFromContext(ctx context.Context) (*Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(*Actor)
	return actor, ok && actor != nil
}

// Actor roles. Operators record and verify money movements; viewers only read.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// ValidRole reports whether role is one of the known actor roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether the actor may change ledger state.
func (a *Actor) CanWrite() bool {
	return a.Role == RoleAdmin || a.Role == RoleOperator
}
