// internal/app/features/departments/handler.go
package departments

import (
	"context"
	"errors"
	"net/http"

	deptstore "github.com/clarityhealth/claritymdt/internal/app/store/departments"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
	"github.com/clarityhealth/claritymdt/internal/app/system/gates"
	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"github.com/clarityhealth/claritymdt/internal/app/system/timeouts"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the department management API. Listing is open to all
// signed-in users (cases and users reference departments everywhere);
// mutation is admin-only.
type Handler struct {
	Departments *deptstore.Store
	Log         *zap.Logger
	AuditLog    *auditlog.Logger
}

func NewHandler(departments *deptstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Departments: departments,
		Log:         logger,
		AuditLog:    audit,
	}
}

type departmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ServeList handles GET /api/departments.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	if g := gates.RequireAuth(w, r); !g.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Departments.List(ctx)
	if err != nil {
		h.Log.Error("list departments failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	if list == nil {
		list = []models.Department{}
	}
	httpjson.Write(w, http.StatusOK, list)
}

// ServeCreate handles POST /api/departments.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAdmin(w, r, "admin access required")
	if !g.OK {
		return
	}

	var req departmentRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Departments.Create(ctx, models.Department{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, deptstore.ErrDuplicateName) {
			httpjson.Conflict(w, err.Error())
			return
		}
		httpjson.BadRequest(w, err.Error())
		return
	}

	h.AuditLog.DepartmentCreated(ctx, r, g.UserID, created.ID, g.Role, created.Name)
	httpjson.Write(w, http.StatusCreated, created)
}

// ServeGet handles GET /api/departments/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	if g := gates.RequireAuth(w, r); !g.OK {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, err := h.Departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, deptstore.ErrNotFound) {
			httpjson.NotFound(w, "department not found")
			return
		}
		h.Log.Error("get department failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	httpjson.Write(w, http.StatusOK, d)
}

// ServeUpdate handles PUT /api/departments/{id}.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAdmin(w, r, "admin access required")
	if !g.OK {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req departmentRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Departments.Update(ctx, id, req.Name, req.Description); err != nil {
		switch {
		case errors.Is(err, deptstore.ErrNotFound):
			httpjson.NotFound(w, "department not found")
		case errors.Is(err, deptstore.ErrDuplicateName):
			httpjson.Conflict(w, err.Error())
		default:
			httpjson.BadRequest(w, err.Error())
		}
		return
	}

	h.AuditLog.DepartmentUpdated(ctx, r, g.UserID, id, g.Role, "name,description")
	w.WriteHeader(http.StatusNoContent)
}

// ServeDelete handles DELETE /api/departments/{id}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
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

	d, err := h.Departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, deptstore.ErrNotFound) {
			httpjson.NotFound(w, "department not found")
			return
		}
		h.Log.Error("get department failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	if err := h.Departments.Delete(ctx, id); err != nil {
		if errors.Is(err, deptstore.ErrNotFound) {
			httpjson.NotFound(w, "department not found")
			return
		}
		h.Log.Error("delete department failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	h.AuditLog.DepartmentDeleted(ctx, r, g.UserID, id, g.Role, d.Name)
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid department id")
		return primitive.NilObjectID, false
	}
	return oid, true
}
