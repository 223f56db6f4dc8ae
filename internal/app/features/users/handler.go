// internal/app/features/users/handler.go
package users

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/clarityhealth/claritymdt/internal/app/store/users"
	"github.com/clarityhealth/claritymdt/internal/app/store/verifycodes"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
	"github.com/clarityhealth/claritymdt/internal/app/system/authutil"
	"github.com/clarityhealth/claritymdt/internal/app/system/gates"
	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"github.com/clarityhealth/claritymdt/internal/app/system/timeouts"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the admin user management API.
type Handler struct {
	Users    *userstore.Store
	Codes    *verifycodes.Store
	Log      *zap.Logger
	AuditLog *auditlog.Logger
}

func NewHandler(users *userstore.Store, codes *verifycodes.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Codes:    codes,
		Log:      logger,
		AuditLog: audit,
	}
}

type userRequest struct {
	FullName     string `json:"full_name"`
	LoginID      string `json:"login_id"`
	Password     string `json:"password,omitempty"`
	AuthMethod   string `json:"auth_method,omitempty"`
	Role         string `json:"role"`
	Status       string `json:"status,omitempty"`
	DepartmentID string `json:"department_id,omitempty"`
}

// ServeList handles GET /api/users.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	if g := gates.RequireAdmin(w, r, "admin access required"); !g.OK {
		return
	}

	filter := userstore.ListFilter{
		Role:   r.URL.Query().Get("role"),
		Status: r.URL.Query().Get("status"),
	}
	if dept := r.URL.Query().Get("department_id"); dept != "" {
		oid, err := primitive.ObjectIDFromHex(dept)
		if err != nil {
			httpjson.BadRequest(w, "invalid department_id")
			return
		}
		filter.DepartmentID = &oid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Users.List(ctx, filter)
	if err != nil {
		h.Log.Error("list users failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	if list == nil {
		list = []models.User{}
	}
	httpjson.Write(w, http.StatusOK, list)
}

// ServeCreate handles POST /api/users.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAdmin(w, r, "admin access required")
	if !g.OK {
		return
	}

	var req userRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}
	if req.FullName == "" || req.LoginID == "" {
		httpjson.BadRequest(w, "full_name and login_id are required")
		return
	}

	u := models.User{
		FullName:   req.FullName,
		LoginID:    req.LoginID,
		AuthMethod: req.AuthMethod,
		Role:       req.Role,
		Status:     req.Status,
	}
	if req.DepartmentID != "" {
		oid, err := primitive.ObjectIDFromHex(req.DepartmentID)
		if err != nil {
			httpjson.BadRequest(w, "invalid department_id")
			return
		}
		u.DepartmentID = &oid
	}
	if req.Password != "" {
		if err := authutil.ValidatePassword(req.Password); err != nil {
			httpjson.BadRequest(w, err.Error())
			return
		}
		hash, err := authutil.HashPassword(req.Password)
		if err != nil {
			h.Log.Error("hash password failed", zap.Error(err))
			httpjson.Internal(w)
			return
		}
		u.PasswordHash = hash
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateLoginID) {
			httpjson.Conflict(w, err.Error())
			return
		}
		httpjson.BadRequest(w, err.Error())
		return
	}

	h.AuditLog.UserCreated(ctx, r, g.UserID, created.ID, g.Role, created.Role)
	httpjson.Write(w, http.StatusCreated, created)
}

// ServeGet handles GET /api/users/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	if g := gates.RequireAdmin(w, r, "admin access required"); !g.OK {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpjson.NotFound(w, "user not found")
			return
		}
		h.Log.Error("get user failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	httpjson.Write(w, http.StatusOK, u)
}

// ServeUpdate handles PUT /api/users/{id}.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAdmin(w, r, "admin access required")
	if !g.OK {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req userRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}

	upd := userstore.Update{
		FullName: req.FullName,
		LoginID:  req.LoginID,
		Role:     req.Role,
		Status:   req.Status,
	}
	if req.DepartmentID != "" {
		oid, err := primitive.ObjectIDFromHex(req.DepartmentID)
		if err != nil {
			httpjson.BadRequest(w, "invalid department_id")
			return
		}
		upd.DepartmentID = &oid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.Update(ctx, id, upd); err != nil {
		switch {
		case errors.Is(err, userstore.ErrNotFound):
			httpjson.NotFound(w, "user not found")
		case errors.Is(err, userstore.ErrDuplicateLoginID):
			httpjson.Conflict(w, err.Error())
		default:
			httpjson.BadRequest(w, err.Error())
		}
		return
	}

	h.AuditLog.UserUpdated(ctx, r, g.UserID, id, g.Role, "profile")
	w.WriteHeader(http.StatusNoContent)
}

// ServeSetPassword handles PUT /api/users/{id}/password.
func (h *Handler) ServeSetPassword(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAdmin(w, r, "admin access required")
	if !g.OK {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}
	if err := authutil.ValidatePassword(req.Password); err != nil {
		httpjson.BadRequest(w, err.Error())
		return
	}

	hash, err := authutil.HashPassword(req.Password)
	if err != nil {
		h.Log.Error("hash password failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SetPasswordHash(ctx, id, hash); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpjson.NotFound(w, "user not found")
			return
		}
		h.Log.Error("set password failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	h.AuditLog.UserUpdated(ctx, r, g.UserID, id, g.Role, "password")
	w.WriteHeader(http.StatusNoContent)
}

// ServeDelete handles DELETE /api/users/{id}. Any pending verification
// code goes with the account.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAdmin(w, r, "admin access required")
	if !g.OK {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if id == g.UserID {
		httpjson.BadRequest(w, "you cannot delete your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpjson.NotFound(w, "user not found")
			return
		}
		h.Log.Error("get user failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpjson.NotFound(w, "user not found")
			return
		}
		h.Log.Error("delete user failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	if err := h.Codes.DeleteByUser(ctx, id); err != nil {
		h.Log.Warn("failed to delete verification code for removed user",
			zap.String("user_id", id.Hex()), zap.Error(err))
	}

	h.AuditLog.UserDeleted(ctx, r, g.UserID, id, g.Role, u.Role)
	w.WriteHeader(http.StatusNoContent)
}

// ServeUnlinkTelegram handles DELETE /api/users/{id}/telegram: an admin
// severing a user's Telegram link, for a lost phone or an offboarded chat.
func (h *Handler) ServeUnlinkTelegram(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAdmin(w, r, "admin access required")
	if !g.OK {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.ClearTelegramChatID(ctx, id); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpjson.NotFound(w, "user not found")
			return
		}
		h.Log.Error("unlink telegram failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	if err := h.Codes.DeleteByUser(ctx, id); err != nil {
		h.Log.Warn("failed to delete verification code on unlink",
			zap.String("user_id", id.Hex()), zap.Error(err))
	}

	h.AuditLog.UserUpdated(ctx, r, g.UserID, id, g.Role, "telegram_unlinked")
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid user id")
		return primitive.NilObjectID, false
	}
	return oid, true
}
