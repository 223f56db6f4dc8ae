// internal/app/features/userinfo/handler.go
package userinfo

import (
	"encoding/json"
	"net/http"

	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
)

// Handler serves user information for authenticated sessions.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ServeUserInfo returns JSON with the current user's authentication status
// and identity.
//
// Response format:
//
//	{ "isAuthenticated": bool, "name": "...", "login_id": "...", "role": "...", "department_id": "..." }
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user, ok := auth.CurrentUser(r)
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"isAuthenticated": false,
			"name":            "",
			"login_id":        "",
			"role":            "",
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"isAuthenticated": true,
		"name":            user.Name,
		"login_id":        user.LoginID,
		"role":            user.Role,
		"department_id":   user.DepartmentID,
	})
}
