// internal/app/features/login/handler.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/clarityhealth/claritymdt/internal/app/store/users"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
	"github.com/clarityhealth/claritymdt/internal/app/system/authutil"
	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"github.com/clarityhealth/claritymdt/internal/app/system/normalize"
	"github.com/clarityhealth/claritymdt/internal/app/system/ratelimit"
	"github.com/clarityhealth/claritymdt/internal/app/system/status"
	"github.com/clarityhealth/claritymdt/internal/app/system/timeouts"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Users      *userstore.Store
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.LoginLimiter
}

func NewHandler(users *userstore.Store, sessionMgr *auth.SessionManager, audit *auditlog.Logger, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		Limiter:    limiter,
	}
}

type loginRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LoginID      string `json:"login_id"`
	Role         string `json:"role"`
	DepartmentID string `json:"department_id,omitempty"`
}

// HandleLogin handles POST /login. The failure message is the same for an
// unknown login ID and a wrong password so the endpoint cannot be used to
// probe which accounts exist.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}

	loginID := strings.TrimSpace(req.LoginID)
	if loginID == "" || req.Password == "" {
		httpjson.BadRequest(w, "login_id and password are required")
		return
	}

	if ok, reason := h.Limiter.Check(r, loginID); !ok {
		h.AuditLog.LoginFailedRateLimit(r.Context(), r, loginID)
		h.Log.Warn("login rate limited",
			zap.String("login_id", loginID),
			zap.String("reason", reason),
			zap.String("ip", ratelimit.ClientIP(r)))
		httpjson.WriteError(w, http.StatusTooManyRequests, httpjson.CodeValidation,
			"too many login attempts, try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			h.AuditLog.LoginFailedUserNotFound(ctx, r, loginID)
			writeInvalidCredentials(w)
			return
		}
		h.Log.Error("login: user lookup failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	if u.Status == status.Disabled {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, loginID)
		httpjson.Forbidden(w, "account is disabled")
		return
	}

	if normalize.AuthMethod(u.AuthMethod) == "google" {
		httpjson.BadRequest(w, "this account signs in with Google; use /auth/google")
		return
	}

	if u.PasswordHash == "" || !authutil.CheckPassword(req.Password, u.PasswordHash) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, loginID)
		writeInvalidCredentials(w)
		return
	}

	sessionUser := sessionUserFor(u)
	if err := h.SessionMgr.SignIn(w, r, sessionUser); err != nil {
		h.Log.Error("login: save session failed", zap.Error(err), zap.String("login_id", loginID))
		httpjson.Internal(w)
		return
	}

	h.Limiter.ResetLogin(loginID)
	h.AuditLog.LoginSuccess(r.Context(), r, u.ID, "internal", u.LoginID)

	httpjson.Write(w, http.StatusOK, loginResponse{
		ID:           u.ID.Hex(),
		Name:         u.FullName,
		LoginID:      u.LoginID,
		Role:         u.Role,
		DepartmentID: sessionUser.DepartmentID,
	})
}

func writeInvalidCredentials(w http.ResponseWriter) {
	httpjson.WriteError(w, http.StatusUnauthorized, httpjson.CodeUnauthorized,
		"invalid login ID or password")
}

func sessionUserFor(u *models.User) *auth.SessionUser {
	su := &auth.SessionUser{
		ID:      u.ID.Hex(),
		Name:    u.FullName,
		LoginID: u.LoginID,
		Role:    u.Role,
	}
	if u.DepartmentID != nil {
		su.DepartmentID = u.DepartmentID.Hex()
	}
	return su
}
