package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	_, err := auth.NewSessionManager("", "s", "", false, zap.NewNop())
	if err == nil {
		t.Error("expected error for empty session key")
	}
}

func TestCurrentUser_NotSet(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if _, ok := auth.CurrentUser(req); ok {
		t.Error("expected no user in fresh request")
	}
}

func TestWithTestUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "abc", Role: "admin"})

	u, ok := auth.CurrentUser(req)
	if !ok {
		t.Fatal("expected user in context")
	}
	if u.ID != "abc" || u.Role != "admin" {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestRequireSignedIn_Anonymous(t *testing.T) {
	sm := newTestManager(t)

	h := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestRequireSignedIn_Authenticated(t *testing.T) {
	sm := newTestManager(t)

	called := false
	h := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: "abc", Role: "viewer"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("handler was not reached")
	}
}

func TestRequireRole_WrongRole(t *testing.T) {
	sm := newTestManager(t)

	h := sm.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: "abc", Role: "viewer"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}
}

func TestRequireRole_CaseInsensitive(t *testing.T) {
	sm := newTestManager(t)

	called := false
	h := sm.RequireRole("Admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: "abc", Role: "ADMIN"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("handler was not reached for case-insensitive role match")
	}
}

func TestSignInSignOut_RoundTrip(t *testing.T) {
	sm := newTestManager(t)

	// Sign in and capture the cookie.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	err := sm.SignIn(rec, req, &auth.SessionUser{ID: "abc", Name: "Dr. Chen", LoginID: "chen@example.org", Role: "specialist"})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	// Replay the cookie through LoadSessionUser (no fetcher: cookie values win).
	var got *auth.SessionUser
	h := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	req2 := httptest.NewRequest("GET", "/", nil)
	for _, c := range cookies {
		req2.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req2)

	if got == nil {
		t.Fatal("expected user loaded from session")
	}
	if got.ID != "abc" || got.Role != "specialist" {
		t.Errorf("unexpected session user: %+v", got)
	}
}
