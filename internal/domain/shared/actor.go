package shared

import (
	"context"

	"github.com/google/uuid"
)

// Role is the coarse permission level of an authenticated caller
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// Actor identifies who performs an operation.
// It is built per request from the verified token and passed explicitly into every workflow call.
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     Role
}

// IsAdmin reports whether the actor has admin privileges
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type actorKey struct{}

// WithActor stores the actor on the context
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored on the context, if any
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
