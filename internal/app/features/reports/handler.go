// internal/app/features/reports/handler.go
package reports

import (
	"context"
	"errors"
	"net/http"

	"github.com/clarityhealth/claritymdt/internal/app/policy/casepolicy"
	casestore "github.com/clarityhealth/claritymdt/internal/app/store/cases"
	reportstore "github.com/clarityhealth/claritymdt/internal/app/store/reports"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
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

// Handler serves the consensus report on a case.
type Handler struct {
	Cases    *casestore.Store
	Reports  *reportstore.Store
	Notifier *notify.Notifier
	Log      *zap.Logger
	AuditLog *auditlog.Logger
}

func NewHandler(cases *casestore.Store, reports *reportstore.Store, notifier *notify.Notifier, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Cases:    cases,
		Reports:  reports,
		Notifier: notifier,
		Log:      logger,
		AuditLog: audit,
	}
}

// ServeGet handles GET /api/cases/{id}/report.
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

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rep, err := h.Reports.GetByCase(ctx, cs.ID)
	if err != nil {
		if errors.Is(err, reportstore.ErrNotFound) {
			httpjson.NotFound(w, "no report for this case yet")
			return
		}
		h.Log.Error("get report failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	httpjson.Write(w, http.StatusOK, rep)
}

// ServePut handles PUT /api/cases/{id}/report: create the draft on first
// write, update it afterwards. A finalized report answers 409.
func (h *Handler) ServePut(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins edit reports")
	if !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	var req struct {
		Body     string `json:"body"`
		Decision string `json:"decision,omitempty"`
	}
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}
	body := htmlsanitize.Sanitize(req.Body)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Reports.UpdateDraft(ctx, cs.ID, body, req.Decision)
	switch {
	case err == nil:
		// updated in place
	case errors.Is(err, reportstore.ErrNotFound):
		if _, err := h.Reports.Create(ctx, models.ConsensusReport{
			CaseID:   cs.ID,
			Body:     body,
			Decision: req.Decision,
		}); err != nil {
			if errors.Is(err, reportstore.ErrAlreadyExists) {
				// Lost a create race; the row exists now.
				httpjson.Conflict(w, "report already exists, retry the update")
				return
			}
			httpjson.BadRequest(w, err.Error())
			return
		}
	case errors.Is(err, reportstore.ErrFinalized):
		httpjson.Conflict(w, "report is finalized and can no longer be edited")
		return
	default:
		httpjson.BadRequest(w, err.Error())
		return
	}

	rep, err := h.Reports.GetByCase(ctx, cs.ID)
	if err != nil {
		h.Log.Error("reload report failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	httpjson.Write(w, http.StatusOK, rep)
}

// ServeFinalize handles POST /api/cases/{id}/report/finalize. Finalizing
// stamps the report immutable and fans a notification out to the case's
// assigned specialists; forwarding is advisory.
func (h *Handler) ServeFinalize(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins finalize reports")
	if !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rep, err := h.Reports.Finalize(ctx, cs.ID, g.UserID)
	if err != nil {
		switch {
		case errors.Is(err, reportstore.ErrNotFound):
			httpjson.NotFound(w, "no report for this case yet")
		case errors.Is(err, reportstore.ErrFinalized):
			httpjson.Conflict(w, "report is already finalized")
		default:
			h.Log.Error("finalize report failed", zap.Error(err))
			httpjson.Internal(w)
		}
		return
	}

	h.AuditLog.ReportFinalized(ctx, r, g.UserID, cs.ID, g.Role)

	if _, err := h.Notifier.NotifyMany(r.Context(), cs.SpecialistIDs, models.Notification{
		Type:    models.NotifyReportFinalized,
		Title:   "Consensus report finalized for " + cs.Title,
		Message: "The board's decision has been recorded.",
		CaseID:  &cs.ID,
	}); err != nil {
		h.Log.Warn("report finalize notification failed",
			zap.String("case_id", cs.ID.Hex()), zap.Error(err))
	}

	httpjson.Write(w, http.StatusOK, rep)
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
