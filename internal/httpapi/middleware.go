package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	sessionIDKey contextKey = "session_id"
	requestIDKey contextKey = "request_id"
)

// RequestIDMiddleware tags every request with an id, echoed in the
// response for support correlation.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionMiddleware resolves the shopping session. The session id is
// the cart id; a missing header starts a fresh session, returned in the
// response so the client can persist it.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get("X-Session-ID")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		w.Header().Set("X-Session-ID", sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware trusts the X-User-ID header set by the edge proxy
// after token validation. Empty means guest; guests can shop but not
// read orders or activate memberships.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), userIDKey, r.Header.Get("X-User-ID"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

func sessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}
