// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Application roles.
const (
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator"
	RoleSpecialist  = "specialist"
	RoleViewer      = "viewer"
)

// IsValidRole reports whether role is one of the fixed role set.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleCoordinator, RoleSpecialist, RoleViewer:
		return true
	}
	return false
}

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false. This ensures callers can trust that
// ok=true means a valid, authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == RoleAdmin
}

// IsCoordinator reports whether the current request's user is a coordinator.
func IsCoordinator(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == RoleCoordinator
}

// IsSpecialist reports whether the current request's user is a specialist.
func IsSpecialist(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == RoleSpecialist
}

// CanManageCases reports whether the current user may create or edit cases
// and meetings. Admins and coordinators can.
func CanManageCases(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && (role == RoleAdmin || role == RoleCoordinator)
}

// CanSubmitOpinions reports whether the current user may write opinions.
// Only specialists author opinions; admins do not speak for a discipline.
func CanSubmitOpinions(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == RoleSpecialist
}

// UserDepartmentID returns the current user's department ID as an ObjectID.
// Returns NilObjectID if the user is not logged in or has no department.
func UserDepartmentID(r *http.Request) primitive.ObjectID {
	user, ok := auth.CurrentUser(r)
	if !ok || user.DepartmentID == "" {
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(user.DepartmentID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}
