package testutil

import (
	"context"
	"net/http"

	"lofo/internal/identity"
	"lofo/internal/platform/middleware"
)

// WithActor stores the actor's identity on the request context the way the
// auth middleware would for an authenticated request.
func WithActor(req *http.Request, actor identity.Actor) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, actor.ID.String())
	ctx = context.WithValue(ctx, middleware.ContextKeyRole, string(actor.Role))
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
