package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fjod/electromart/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	sessionIDKey
	requestIDKey
)

const (
	SessionCookie    = "sid"
	HeaderSessionID  = "X-Session-ID"
	HeaderUserID     = "X-User-ID"
	HeaderAdminToken = "X-Admin-Token"
	HeaderRequestID  = "X-Request-ID"
	GuestUser        = "guest"
)

// MockAuthMiddleware takes the user id from X-User-ID. Requests without one act as the
// guest user, which SessionMiddleware narrows to the shopping session.
func MockAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUserID)
		if userID == "" || strings.HasPrefix(userID, GuestUser+":") {
			userID = GuestUser
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionMiddleware binds the shopping session to the request. The id comes from the sid
// cookie or X-Session-ID; a new one is minted and set as a cookie when neither is present.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(HeaderSessionID)
		if sessionID == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				sessionID = c.Value
			}
		}
		if sessionID == "" {
			sessionID = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(HeaderSessionID, sessionID)
		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		if getUserID(ctx) == GuestUser {
			// guests own only what their session placed
			ctx = context.WithValue(ctx, userIDKey, guestUserID(sessionID))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDMiddleware exposes chi's request id (or the caller's X-Request-ID) to handlers
// and echoes it back.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggerMiddleware stores a request-scoped logger in the context.
func LoggerMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base.With(
				"request_id", getRequestID(r.Context()),
				"session_id", getSessionID(r.Context()),
				"user_id", getUserID(r.Context()),
			)
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), l)))
		})
	}
}

// MaxBodySize caps request bodies at n bytes.
func MaxBodySize(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && n > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly guards back-office routes with a shared token. An empty token disables them.
func AdminOnly(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				respondError(w, http.StatusForbidden, "admin_disabled", "admin access is not configured")
				return
			}
			got := r.Header.Get(HeaderAdminToken)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				respondError(w, http.StatusUnauthorized, "unauthorized", "invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func getUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

func guestUserID(sessionID string) string {
	return GuestUser + ":" + sessionID
}

func getSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
