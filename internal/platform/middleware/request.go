package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKeyRequestID struct{}

var ContextKeyRequestID = contextKeyRequestID{}

// GetRequestID retrieves the request correlation ID from the context.
func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	if !ok {
		return ""
	}
	return requestID
}

// RequestID assigns each request a correlation ID, honoring an incoming
// X-Request-ID header so upstream proxies can trace through.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
