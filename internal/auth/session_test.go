package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kuitang/noteboard/internal/store"
	"github.com/kuitang/noteboard/internal/testdb"
)

func newTestSessionService(t *testing.T) (*SessionService, *store.Store) {
	t.Helper()
	database, err := testdb.NewInMemory()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	st := store.New(database)
	return NewSessionService(st.Sessions, time.Hour, 30*24*time.Hour, false), st
}

func createSessionUser(t *testing.T, st *store.Store) string {
	t.Helper()
	users := NewUserService(st.Users)
	user, err := users.Register(context.Background(), "sess@example.com", "sess", "pw")
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	return user.ID
}

func TestSessionService_CreateAndValidate(t *testing.T) {
	t.Parallel()
	svc, st := newTestSessionService(t)
	ctx := context.Background()
	userID := createSessionUser(t, st)

	sessionID, err := svc.Create(ctx, userID, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sessionID == "" {
		t.Fatal("empty session ID")
	}

	got, err := svc.Validate(ctx, sessionID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got != userID {
		t.Fatalf("Validate returned user %q, want %q", got, userID)
	}

	if _, err := svc.Validate(ctx, "no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown session: got %v, want ErrSessionNotFound", err)
	}
}

func TestSessionService_RememberExtendsLifetime(t *testing.T) {
	t.Parallel()
	svc, st := newTestSessionService(t)
	ctx := context.Background()
	userID := createSessionUser(t, st)

	shortID, err := svc.Create(ctx, userID, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	longID, err := svc.Create(ctx, userID, true)
	if err != nil {
		t.Fatalf("Create remember: %v", err)
	}

	short, err := st.Sessions.Get(ctx, shortID)
	if err != nil {
		t.Fatalf("Get short: %v", err)
	}
	long, err := st.Sessions.Get(ctx, longID)
	if err != nil {
		t.Fatalf("Get long: %v", err)
	}
	if !long.ExpiresAt.After(short.ExpiresAt) {
		t.Fatalf("remember-me session expires at %v, not after %v", long.ExpiresAt, short.ExpiresAt)
	}
}

func TestSessionService_ExpiredSessionRejected(t *testing.T) {
	t.Parallel()
	svc, st := newTestSessionService(t)
	ctx := context.Background()
	userID := createSessionUser(t, st)

	now := time.Now().UTC()
	err := st.Sessions.Create(ctx, &store.Session{
		ID:        "expired-session",
		UserID:    userID,
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("insert expired session: %v", err)
	}

	if _, err := svc.Validate(ctx, "expired-session"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("got %v, want ErrSessionExpired", err)
	}
}

func TestSessionService_DeleteInvalidates(t *testing.T) {
	t.Parallel()
	svc, st := newTestSessionService(t)
	ctx := context.Background()
	userID := createSessionUser(t, st)

	sessionID, err := svc.Create(ctx, userID, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, sessionID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Validate(ctx, sessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("got %v, want ErrSessionNotFound", err)
	}
	// Deleting again must not error: logout with a stale cookie is a no-op.
	if err := svc.Delete(ctx, sessionID); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestSessionService_CleanupRemovesExpired(t *testing.T) {
	t.Parallel()
	svc, st := newTestSessionService(t)
	ctx := context.Background()
	userID := createSessionUser(t, st)

	liveID, err := svc.Create(ctx, userID, false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	now := time.Now().UTC()
	err = st.Sessions.Create(ctx, &store.Session{
		ID:        "stale",
		UserID:    userID,
		ExpiresAt: now.Add(-time.Hour),
		CreatedAt: now.Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("insert stale session: %v", err)
	}

	if err := svc.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := st.Sessions.Get(ctx, "stale"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("stale session survived cleanup: %v", err)
	}
	if _, err := svc.Validate(ctx, liveID); err != nil {
		t.Fatalf("live session removed by cleanup: %v", err)
	}
}

func TestSessionService_CookieLifetime(t *testing.T) {
	t.Parallel()
	svc, _ := newTestSessionService(t)

	rec := httptest.NewRecorder()
	svc.SetCookie(rec, "abc", false)
	cookie := findCookie(t, rec, SessionCookieName)
	if cookie.MaxAge != 0 {
		t.Fatalf("session-scoped cookie has MaxAge %d", cookie.MaxAge)
	}
	if !cookie.HttpOnly {
		t.Fatal("cookie not HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie SameSite = %d", cookie.SameSite)
	}

	rec = httptest.NewRecorder()
	svc.SetCookie(rec, "abc", true)
	cookie = findCookie(t, rec, SessionCookieName)
	if cookie.MaxAge <= 0 {
		t.Fatalf("remember-me cookie has MaxAge %d", cookie.MaxAge)
	}

	rec = httptest.NewRecorder()
	svc.ClearCookie(rec)
	cookie = findCookie(t, rec, SessionCookieName)
	if cookie.MaxAge >= 0 {
		t.Fatalf("cleared cookie has MaxAge %d", cookie.MaxAge)
	}
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestGetFromRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := GetFromRequest(req); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("no cookie: got %v, want ErrSessionNotFound", err)
	}

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "xyz"})
	got, err := GetFromRequest(req)
	if err != nil {
		t.Fatalf("GetFromRequest: %v", err)
	}
	if got != "xyz" {
		t.Fatalf("got %q", got)
	}
}
