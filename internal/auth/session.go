package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kuitang/noteboard/internal/obs"
	"github.com/kuitang/noteboard/internal/store"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session configuration
const (
	SessionIDLength   = 32 // 256 bits
	SessionCookieName = "session_id"
)

// SessionService handles session management. The configured duration applies
// to ordinary logins; RememberDuration applies when the user checks
// "remember me" at login.
type SessionService struct {
	sessions *store.SessionStore

	Duration         time.Duration
	RememberDuration time.Duration
	SecureCookies    bool
}

// NewSessionService creates a new session service.
func NewSessionService(sessions *store.SessionStore, duration, rememberDuration time.Duration, secureCookies bool) *SessionService {
	return &SessionService{
		sessions:         sessions,
		Duration:         duration,
		RememberDuration: rememberDuration,
		SecureCookies:    secureCookies,
	}
}

// Create creates a new session for a user. remember selects the extended
// lifetime. Returns the session ID which should be stored in a cookie.
func (s *SessionService) Create(ctx context.Context, userID string, remember bool) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session ID: %w", err)
	}

	duration := s.Duration
	if remember {
		duration = s.RememberDuration
	}

	now := time.Now().UTC()
	err = s.sessions.Create(ctx, &store.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(duration),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return sessionID, nil
}

// Validate checks if a session is valid and returns the user ID.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (string, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	if !session.ExpiresAt.After(time.Now()) {
		return "", ErrSessionExpired
	}
	return session.UserID, nil
}

// Delete removes a session (logout).
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Cleanup removes all expired sessions.
// This should be called periodically by a background goroutine.
func (s *SessionService) Cleanup(ctx context.Context) error {
	removed, err := s.sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cleanup expired sessions: %w", err)
	}
	if removed > 0 {
		obs.Pkg("auth").Debug("session_cleanup", "removed", removed)
	}
	return nil
}

// StartCleanup runs Cleanup every interval until stop is closed.
func (s *SessionService) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				obs.Pkg("auth").Warn("session_cleanup_failed", "error", err)
			}
		case <-stop:
			return
		}
	}
}

// Cookie helpers

// SetCookie sets the session cookie on the response. Without remember the
// cookie is session-scoped (no Max-Age): it dies with the browser even though
// the server-side session lives for the configured duration.
func (s *SessionService) SetCookie(w http.ResponseWriter, sessionID string, remember bool) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = int(s.RememberDuration.Seconds())
	}
	http.SetCookie(w, cookie)
}

// ClearCookie removes the session cookie.
func (s *SessionService) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete immediately
	})
}

// GetFromRequest retrieves the session ID from the request cookie.
func GetFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return cookie.Value, nil
}

// Helper functions

func generateSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
