package userinfo_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/features/userinfo"
	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestServeUserInfo_Unauthenticated(t *testing.T) {
	handler := userinfo.NewHandler()

	req := httptest.NewRequest("GET", "/api/user", nil)
	rec := httptest.NewRecorder()

	handler.ServeUserInfo(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response JSON: %v", err)
	}
	if isAuth, ok := response["isAuthenticated"].(bool); !ok || isAuth {
		t.Errorf("isAuthenticated: got %v, want false", response["isAuthenticated"])
	}
	if name, ok := response["name"].(string); !ok || name != "" {
		t.Errorf("name: got %q, want empty string", response["name"])
	}
}

func TestServeUserInfo_Authenticated(t *testing.T) {
	handler := userinfo.NewHandler()

	deptID := primitive.NewObjectID()
	sessionUser := &auth.SessionUser{
		ID:           primitive.NewObjectID().Hex(),
		Name:         "Dr. Amara Osei",
		LoginID:      "aosei",
		Role:         "specialist",
		DepartmentID: deptID.Hex(),
	}

	req := httptest.NewRequest("GET", "/api/user", nil)
	req = auth.WithTestUser(req, sessionUser)
	rec := httptest.NewRecorder()

	handler.ServeUserInfo(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response JSON: %v", err)
	}
	if isAuth, ok := response["isAuthenticated"].(bool); !ok || !isAuth {
		t.Errorf("isAuthenticated: got %v, want true", response["isAuthenticated"])
	}
	if name, _ := response["name"].(string); name != "Dr. Amara Osei" {
		t.Errorf("name: got %q", name)
	}
	if role, _ := response["role"].(string); role != "specialist" {
		t.Errorf("role: got %q", role)
	}
	if dept, _ := response["department_id"].(string); dept != deptID.Hex() {
		t.Errorf("department_id: got %q, want %q", dept, deptID.Hex())
	}
}
