// internal/app/features/cases/handler.go
package cases

import (
	"context"
	"errors"
	"net/http"

	"github.com/clarityhealth/claritymdt/internal/app/policy/casepolicy"
	attachstore "github.com/clarityhealth/claritymdt/internal/app/store/attachments"
	casestore "github.com/clarityhealth/claritymdt/internal/app/store/cases"
	opinionstore "github.com/clarityhealth/claritymdt/internal/app/store/opinions"
	reportstore "github.com/clarityhealth/claritymdt/internal/app/store/reports"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
	"github.com/clarityhealth/claritymdt/internal/app/system/authz"
	"github.com/clarityhealth/claritymdt/internal/app/system/gates"
	"github.com/clarityhealth/claritymdt/internal/app/system/htmlsanitize"
	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"github.com/clarityhealth/claritymdt/internal/app/system/notify"
	"github.com/clarityhealth/claritymdt/internal/app/system/timeouts"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the case management API.
type Handler struct {
	Cases       *casestore.Store
	Opinions    *opinionstore.Store
	Reports     *reportstore.Store
	Attachments *attachstore.Store
	Notifier    *notify.Notifier
	Log         *zap.Logger
	AuditLog    *auditlog.Logger
}

func NewHandler(cases *casestore.Store, opinions *opinionstore.Store, reports *reportstore.Store, attachments *attachstore.Store, notifier *notify.Notifier, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Cases:       cases,
		Opinions:    opinions,
		Reports:     reports,
		Attachments: attachments,
		Notifier:    notifier,
		Log:         logger,
		AuditLog:    audit,
	}
}

type caseRequest struct {
	PatientRef    string   `json:"patient_ref"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary,omitempty"`
	Status        string   `json:"status,omitempty"`
	DepartmentID  string   `json:"department_id"`
	SpecialistIDs []string `json:"specialist_ids,omitempty"`
}

// ServeList handles GET /api/cases. Results are scoped by role: managers
// see everything, specialists see assigned plus own-department cases, and
// viewers see their department only.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	filter := casestore.ListFilter{Status: r.URL.Query().Get("status")}
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

	var list []models.Case
	var err error
	switch g.Role {
	case authz.RoleAdmin, authz.RoleCoordinator:
		list, err = h.Cases.List(ctx, filter)
	case authz.RoleSpecialist:
		list, err = h.listForSpecialist(ctx, r, g.UserID, filter)
	default:
		deptID := authz.UserDepartmentID(r)
		if deptID == primitive.NilObjectID {
			httpjson.Write(w, http.StatusOK, []models.Case{})
			return
		}
		filter.DepartmentID = &deptID
		list, err = h.Cases.List(ctx, filter)
	}
	if err != nil {
		h.Log.Error("list cases failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	if list == nil {
		list = []models.Case{}
	}
	httpjson.Write(w, http.StatusOK, list)
}

// listForSpecialist merges assigned cases with the specialist's own
// department's cases, deduplicated, keeping the newest-first order of the
// assigned query.
func (h *Handler) listForSpecialist(ctx context.Context, r *http.Request, userID primitive.ObjectID, filter casestore.ListFilter) ([]models.Case, error) {
	assignedFilter := filter
	assignedFilter.SpecialistID = &userID
	assignedFilter.DepartmentID = nil
	assigned, err := h.Cases.List(ctx, assignedFilter)
	if err != nil {
		return nil, err
	}

	deptID := authz.UserDepartmentID(r)
	if deptID == primitive.NilObjectID {
		return assigned, nil
	}
	deptFilter := filter
	deptFilter.DepartmentID = &deptID
	dept, err := h.Cases.List(ctx, deptFilter)
	if err != nil {
		return nil, err
	}

	seen := make(map[primitive.ObjectID]struct{}, len(assigned))
	for _, cs := range assigned {
		seen[cs.ID] = struct{}{}
	}
	for _, cs := range dept {
		if _, dup := seen[cs.ID]; !dup {
			assigned = append(assigned, cs)
		}
	}
	return assigned, nil
}

// ServeCreate handles POST /api/cases.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins manage cases")
	if !g.OK {
		return
	}

	var req caseRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}
	deptID, err := primitive.ObjectIDFromHex(req.DepartmentID)
	if err != nil {
		httpjson.BadRequest(w, "invalid department_id")
		return
	}
	specialistIDs, ok := parseObjectIDs(w, req.SpecialistIDs)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Cases.Create(ctx, models.Case{
		PatientRef:    req.PatientRef,
		Title:         req.Title,
		Summary:       htmlsanitize.Sanitize(req.Summary),
		Status:        req.Status,
		DepartmentID:  deptID,
		CreatedBy:     g.UserID,
		SpecialistIDs: specialistIDs,
	})
	if err != nil {
		httpjson.BadRequest(w, err.Error())
		return
	}

	h.AuditLog.CaseCreated(ctx, r, g.UserID, created.ID, g.Role)
	h.notifyAssigned(r.Context(), created, specialistIDs)
	httpjson.Write(w, http.StatusCreated, created)
}

// ServeGet handles GET /api/cases/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	if g := gates.RequireAuth(w, r); !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	if !casepolicy.CanView(r, cs) {
		httpjson.Forbidden(w, "")
		return
	}
	httpjson.Write(w, http.StatusOK, cs)
}

// ServeUpdate handles PUT /api/cases/{id}.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins manage cases")
	if !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	if !casepolicy.CanEdit(r, cs) {
		httpjson.Conflict(w, "closed cases are read-only")
		return
	}

	var req caseRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}
	deptID, err := primitive.ObjectIDFromHex(req.DepartmentID)
	if err != nil {
		httpjson.BadRequest(w, "invalid department_id")
		return
	}
	specialistIDs, ok := parseObjectIDs(w, req.SpecialistIDs)
	if !ok {
		return
	}
	if req.Status == "" {
		req.Status = cs.Status
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err = h.Cases.Update(ctx, cs.ID, casestore.Update{
		Title:         req.Title,
		Summary:       htmlsanitize.Sanitize(req.Summary),
		Status:        req.Status,
		DepartmentID:  deptID,
		SpecialistIDs: specialistIDs,
	})
	if err != nil {
		if errors.Is(err, casestore.ErrNotFound) {
			httpjson.NotFound(w, "case not found")
			return
		}
		httpjson.BadRequest(w, err.Error())
		return
	}

	h.AuditLog.CaseUpdated(ctx, r, g.UserID, cs.ID, g.Role, "profile")
	h.notifyAssigned(r.Context(), *cs, newlyAssigned(cs.SpecialistIDs, specialistIDs))
	w.WriteHeader(http.StatusNoContent)
}

// ServeSetStatus handles PUT /api/cases/{id}/status.
func (h *Handler) ServeSetStatus(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins manage cases")
	if !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Cases.SetStatus(ctx, cs.ID, req.Status); err != nil {
		if errors.Is(err, casestore.ErrNotFound) {
			httpjson.NotFound(w, "case not found")
			return
		}
		httpjson.BadRequest(w, err.Error())
		return
	}

	if req.Status == models.CaseClosed {
		h.AuditLog.CaseClosed(ctx, r, g.UserID, cs.ID, g.Role)
	} else {
		h.AuditLog.CaseUpdated(ctx, r, g.UserID, cs.ID, g.Role, "status")
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeAssign handles PUT /api/cases/{id}/specialists.
func (h *Handler) ServeAssign(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins manage cases")
	if !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	if !casepolicy.CanEdit(r, cs) {
		httpjson.Conflict(w, "closed cases are read-only")
		return
	}

	var req struct {
		SpecialistIDs []string `json:"specialist_ids"`
	}
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}
	specialistIDs, ok := parseObjectIDs(w, req.SpecialistIDs)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Cases.AssignSpecialists(ctx, cs.ID, specialistIDs); err != nil {
		if errors.Is(err, casestore.ErrNotFound) {
			httpjson.NotFound(w, "case not found")
			return
		}
		h.Log.Error("assign specialists failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}

	h.AuditLog.CaseUpdated(ctx, r, g.UserID, cs.ID, g.Role, "specialists")
	h.notifyAssigned(r.Context(), *cs, newlyAssigned(cs.SpecialistIDs, specialistIDs))
	w.WriteHeader(http.StatusNoContent)
}

// ServeDelete handles DELETE /api/cases/{id}. Opinions, the report, and
// attachment records cascade; stored attachment files are cleaned up by
// the attachments feature before this endpoint is normally used.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAdmin(w, r, "only admins delete cases")
	if !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Cases.Delete(ctx, cs.ID); err != nil {
		if errors.Is(err, casestore.ErrNotFound) {
			httpjson.NotFound(w, "case not found")
			return
		}
		h.Log.Error("delete case failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	if err := h.Opinions.DeleteByCase(ctx, cs.ID); err != nil {
		h.Log.Warn("case deleted but opinion cascade failed", zap.String("case_id", cs.ID.Hex()), zap.Error(err))
	}
	if err := h.Reports.DeleteByCase(ctx, cs.ID); err != nil {
		h.Log.Warn("case deleted but report cascade failed", zap.String("case_id", cs.ID.Hex()), zap.Error(err))
	}
	if err := h.Attachments.DeleteByCase(ctx, cs.ID); err != nil {
		h.Log.Warn("case deleted but attachment cascade failed", zap.String("case_id", cs.ID.Hex()), zap.Error(err))
	}

	h.AuditLog.CaseUpdated(ctx, r, g.UserID, cs.ID, g.Role, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

// notifyAssigned fans a case_assigned notification out to specialists.
// Delivery is advisory; failures are logged inside the notifier.
func (h *Handler) notifyAssigned(ctx context.Context, cs models.Case, specialistIDs []primitive.ObjectID) {
	if len(specialistIDs) == 0 {
		return
	}
	_, err := h.Notifier.NotifyMany(ctx, specialistIDs, models.Notification{
		Type:    models.NotifyCaseAssigned,
		Title:   "You have been assigned to a case",
		Message: cs.Title,
		CaseID:  &cs.ID,
	})
	if err != nil {
		h.Log.Warn("case assignment notification failed",
			zap.String("case_id", cs.ID.Hex()), zap.Error(err))
	}
}

// newlyAssigned returns the ids present in next but not in prev.
func newlyAssigned(prev, next []primitive.ObjectID) []primitive.ObjectID {
	old := make(map[primitive.ObjectID]struct{}, len(prev))
	for _, id := range prev {
		old[id] = struct{}{}
	}
	var added []primitive.ObjectID
	for _, id := range next {
		if _, ok := old[id]; !ok {
			added = append(added, id)
		}
	}
	return added
}

func (h *Handler) loadCase(w http.ResponseWriter, r *http.Request) (*models.Case, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid case id")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cs, err := h.Cases.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, casestore.ErrNotFound) {
			httpjson.NotFound(w, "case not found")
			return nil, false
		}
		h.Log.Error("get case failed", zap.Error(err))
		httpjson.Internal(w)
		return nil, false
	}
	return cs, true
}

func parseObjectIDs(w http.ResponseWriter, hexes []string) ([]primitive.ObjectID, bool) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, hx := range hexes {
		oid, err := primitive.ObjectIDFromHex(hx)
		if err != nil {
			httpjson.BadRequest(w, "invalid specialist id")
			return nil, false
		}
		out = append(out, oid)
	}
	return out, true
}
