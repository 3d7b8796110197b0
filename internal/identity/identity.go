// Package identity resolves an opaque caller credential to a stable user id
// and role. The rest of the system consumes Actor values and never sees
// tokens.
package identity

import (
	"context"

	"github.com/google/uuid"

	"lofo/internal/platform/middleware"
	dErrors "lofo/pkg/domain-errors"
)

// Role is the caller's authorization level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is an authenticated caller.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// IsAdmin reports whether the actor holds administrative rights.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// ActorFromContext rebuilds the Actor the auth middleware stored. Fails with
// CodeUnauthorized when the context carries no usable identity.
func ActorFromContext(ctx context.Context) (Actor, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return Actor{}, dErrors.New(dErrors.CodeUnauthorized, "missing caller identity")
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return Actor{}, dErrors.New(dErrors.CodeUnauthorized, "malformed caller identity")
	}
	role := Role(middleware.GetRole(ctx))
	if role != RoleAdmin {
		role = RoleUser
	}
	return Actor{ID: id, Role: role}, nil
}
