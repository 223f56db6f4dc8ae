package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
	"github.com/clarityhealth/claritymdt/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserCtx_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	role, name, uid, ok := authz.UserCtx(req)
	if ok {
		t.Error("expected ok=false without a user")
	}
	if role != "visitor" || name != "" || uid != primitive.NilObjectID {
		t.Errorf("unexpected zero result: %q %q %v", role, name, uid)
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "not-an-objectid", Role: "admin"})
	if _, _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected ok=false for malformed user ID")
	}
}

func TestUserCtx_ValidUser(t *testing.T) {
	id := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: id.Hex(), Name: "Dr. Chen", Role: "Specialist"})

	role, name, uid, ok := authz.UserCtx(req)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if role != "specialist" {
		t.Errorf("role should be lowercased, got %q", role)
	}
	if name != "Dr. Chen" || uid != id {
		t.Errorf("unexpected result: %q %v", name, uid)
	}
}

func TestCanManageCases(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{"admin", true},
		{"coordinator", true},
		{"specialist", false},
		{"viewer", false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req = auth.WithTestUser(req, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: tt.role})
			if got := authz.CanManageCases(req); got != tt.want {
				t.Errorf("CanManageCases(%s) = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestCanSubmitOpinions(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "specialist"})
	if !authz.CanSubmitOpinions(req) {
		t.Error("specialist should be able to submit opinions")
	}

	req2 := httptest.NewRequest("GET", "/", nil)
	req2 = auth.WithTestUser(req2, &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "admin"})
	if authz.CanSubmitOpinions(req2) {
		t.Error("admin should not author opinions")
	}
}

func TestIsValidRole(t *testing.T) {
	for _, role := range []string{"admin", "coordinator", "specialist", "viewer"} {
		if !authz.IsValidRole(role) {
			t.Errorf("expected %q to be valid", role)
		}
	}
	if authz.IsValidRole("superuser") {
		t.Error("unexpected valid role")
	}
}
