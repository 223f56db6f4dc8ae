// Package gates provides authorization gate functions for HTTP handlers.
// Gates check authentication and authorization, writing JSON error bodies
// when checks fail.
//
// # Three-Tier Authorization Pattern
//
//  1. Route-Level Middleware (auth.RequireSignedIn, auth.RequireRole)
//     Applied in routes.go files for coarse-grained access control.
//
//  2. Handler-Level Gates (this package)
//     Used in handlers that need role checks WITHOUT route-level middleware,
//     or need different role requirements than the route group.
//     Gates write the error response and return user context.
//
//  3. Policy Layer (internal/app/policy/*)
//     Resource-specific authorization requiring database lookups.
//     Policies return (bool, error) - callers handle error rendering.
//
// Don't use gates in handlers that are behind role-specific middleware;
// use authz.UserCtx(r) there instead.
package gates

import (
	"net/http"

	"github.com/clarityhealth/claritymdt/internal/app/system/authz"
	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Result contains the result of an authorization gate check.
type Result struct {
	Role   string
	Name   string
	UserID primitive.ObjectID
	OK     bool
}

// RequireAuth ensures a user is authenticated.
// If not, it writes a 401 body and returns OK=false.
func RequireAuth(w http.ResponseWriter, r *http.Request) Result {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return Result{OK: false}
	}
	return Result{Role: role, Name: name, UserID: uid, OK: true}
}

// RequireAdmin ensures the user is authenticated and has the admin role.
func RequireAdmin(w http.ResponseWriter, r *http.Request, forbiddenMsg string) Result {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return Result{OK: false}
	}
	if role != authz.RoleAdmin {
		httpjson.Forbidden(w, forbiddenMsg)
		return Result{OK: false}
	}
	return Result{Role: role, Name: name, UserID: uid, OK: true}
}

// RequireCaseManager ensures the user is an admin or coordinator.
func RequireCaseManager(w http.ResponseWriter, r *http.Request, forbiddenMsg string) Result {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return Result{OK: false}
	}
	if role != authz.RoleAdmin && role != authz.RoleCoordinator {
		httpjson.Forbidden(w, forbiddenMsg)
		return Result{OK: false}
	}
	return Result{Role: role, Name: name, UserID: uid, OK: true}
}

// RequireAnyRole ensures the user is authenticated and has one of the
// specified roles.
func RequireAnyRole(w http.ResponseWriter, r *http.Request, forbiddenMsg string, allowedRoles ...string) Result {
	role, name, uid, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return Result{OK: false}
	}

	for _, allowed := range allowedRoles {
		if role == allowed {
			return Result{Role: role, Name: name, UserID: uid, OK: true}
		}
	}

	httpjson.Forbidden(w, forbiddenMsg)
	return Result{OK: false}
}
