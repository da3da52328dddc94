package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Context keys for auth data
type contextKey string

const (
	userIDKey contextKey = "userID"
)

// Middleware provides authentication middleware for HTTP handlers.
type Middleware struct {
	sessionService *SessionService
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(sessionService *SessionService) *Middleware {
	return &Middleware{
		sessionService: sessionService,
	}
}

// RequireAuth is middleware that requires a valid session.
// Unauthenticated page requests are redirected to the login form with the
// original path carried in ?next= so login can send the user back.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := m.validateRequest(r)
		if userID == "" {
			loginURL := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, loginURL, http.StatusFound)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth is middleware that adds user info to context if present.
// Does not require authentication - continues with or without a session.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := m.validateRequest(r)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) validateRequest(r *http.Request) string {
	sessionID, err := GetFromRequest(r)
	if err != nil {
		return ""
	}
	userID, err := m.sessionService.Validate(r.Context(), sessionID)
	if err != nil {
		return ""
	}
	return userID
}

// SafeNextURL returns target if it is a safe same-site redirect destination,
// otherwise fallback. Only paths starting with a single "/" qualify;
// absolute URLs and protocol-relative "//host" forms are rejected.
func SafeNextURL(target, fallback string) string {
	if target == "" {
		return fallback
	}
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return fallback
	}
	return target
}

// GetUserID retrieves the user ID from the request context.
// Returns empty string if no user is authenticated.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// IsAuthenticated checks if the context has an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}
