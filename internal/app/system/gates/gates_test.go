package gates_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
	"github.com/clarityhealth/claritymdt/internal/app/system/gates"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func reqWithRole(role string) *http.Request {
	r := httptest.NewRequest("GET", "/", nil)
	return auth.WithTestUser(r, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Name: "Test", Role: role})
}

func TestRequireAuth_Anonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	res := gates.RequireAuth(rec, httptest.NewRequest("GET", "/", nil))
	if res.OK {
		t.Error("expected OK=false")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestRequireAuth_SignedIn(t *testing.T) {
	rec := httptest.NewRecorder()
	res := gates.RequireAuth(rec, reqWithRole("viewer"))
	if !res.OK {
		t.Fatal("expected OK=true")
	}
	if res.Role != "viewer" {
		t.Errorf("role: got %q", res.Role)
	}
}

func TestRequireAdmin(t *testing.T) {
	rec := httptest.NewRecorder()
	if res := gates.RequireAdmin(rec, reqWithRole("specialist"), "admins only"); res.OK {
		t.Error("expected OK=false for specialist")
	}
	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}

	rec2 := httptest.NewRecorder()
	if res := gates.RequireAdmin(rec2, reqWithRole("admin"), "admins only"); !res.OK {
		t.Error("expected OK=true for admin")
	}
}

func TestRequireCaseManager(t *testing.T) {
	for _, role := range []string{"admin", "coordinator"} {
		rec := httptest.NewRecorder()
		if res := gates.RequireCaseManager(rec, reqWithRole(role), ""); !res.OK {
			t.Errorf("expected OK=true for %s", role)
		}
	}
	rec := httptest.NewRecorder()
	if res := gates.RequireCaseManager(rec, reqWithRole("viewer"), ""); res.OK {
		t.Error("expected OK=false for viewer")
	}
}

func TestRequireAnyRole(t *testing.T) {
	rec := httptest.NewRecorder()
	res := gates.RequireAnyRole(rec, reqWithRole("specialist"), "", "specialist", "coordinator")
	if !res.OK {
		t.Error("expected OK=true for listed role")
	}

	rec2 := httptest.NewRecorder()
	res2 := gates.RequireAnyRole(rec2, reqWithRole("viewer"), "", "specialist", "coordinator")
	if res2.OK {
		t.Error("expected OK=false for unlisted role")
	}
	if rec2.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec2.Code)
	}
}
