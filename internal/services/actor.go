package services

import (
	"context"
	"slices"

	"medishare/internal/domain/user"
	medishare_errors "medishare/pkg/errors"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role user.Role
}

func (a Actor) Authenticated() bool {
	return a.ID != uuid.Nil && a.Role.Valid()
}

func (a Actor) IsAdmin() bool {
	return a.Role == user.RoleAdmin
}

type ctxKey string

var actorKey ctxKey = "actor"

// WithActor stores the actor resolved by the auth middleware. Services never
// read it; handlers pass the actor explicitly.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok && actor.Authenticated()
}

func requireActor(actor Actor) error {
	if !actor.Authenticated() {
		return medishare_errors.Unauthenticated("Not authorized, no token")
	}
	return nil
}

func requireRole(actor Actor, message string, roles ...user.Role) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !slices.Contains(roles, actor.Role) {
		return medishare_errors.Forbidden(message)
	}
	return nil
}
