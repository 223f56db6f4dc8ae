// internal/app/features/opinions/handler.go
package opinions

import (
	"context"
	"errors"
	"net/http"

	"github.com/clarityhealth/claritymdt/internal/app/policy/casepolicy"
	casestore "github.com/clarityhealth/claritymdt/internal/app/store/cases"
	opinionstore "github.com/clarityhealth/claritymdt/internal/app/store/opinions"
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

// Handler serves specialist opinions on a case.
type Handler struct {
	Cases    *casestore.Store
	Opinions *opinionstore.Store
	Notifier *notify.Notifier
	Log      *zap.Logger
	AuditLog *auditlog.Logger
}

func NewHandler(cases *casestore.Store, opinions *opinionstore.Store, notifier *notify.Notifier, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Cases:    cases,
		Opinions: opinions,
		Notifier: notifier,
		Log:      logger,
		AuditLog: audit,
	}
}

// ServeList handles GET /api/cases/{id}/opinions.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
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

	list, err := h.Opinions.ListByCase(ctx, cs.ID)
	if err != nil {
		h.Log.Error("list opinions failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	if list == nil {
		list = []models.Opinion{}
	}
	httpjson.Write(w, http.StatusOK, list)
}

// ServeSubmit handles PUT /api/cases/{id}/opinions. Submitting again
// updates the caller's existing opinion in place; the case coordinator is
// notified either way.
func (h *Handler) ServeSubmit(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}
	cs, ok := h.loadCase(w, r)
	if !ok {
		return
	}
	if !casepolicy.CanSubmitOpinion(r, cs) {
		httpjson.Forbidden(w, "only specialists assigned to an open case submit opinions")
		return
	}

	var req struct {
		Body           string `json:"body"`
		Recommendation string `json:"recommendation,omitempty"`
	}
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	op, err := h.Opinions.Submit(ctx, models.Opinion{
		CaseID:         cs.ID,
		AuthorID:       g.UserID,
		Body:           htmlsanitize.Sanitize(req.Body),
		Recommendation: req.Recommendation,
	})
	if err != nil {
		httpjson.BadRequest(w, err.Error())
		return
	}

	h.AuditLog.OpinionSubmitted(ctx, r, g.UserID, cs.ID)

	// The coordinator who opened the case tracks opinion arrival.
	if cs.CreatedBy != g.UserID {
		_, err := h.Notifier.Notify(r.Context(), models.Notification{
			UserID:  cs.CreatedBy,
			Type:    models.NotifyOpinionSubmitted,
			Title:   "New specialist opinion on " + cs.Title,
			Message: g.Name + " submitted an opinion.",
			CaseID:  &cs.ID,
		})
		if err != nil {
			h.Log.Warn("opinion notification failed",
				zap.String("case_id", cs.ID.Hex()), zap.Error(err))
		}
	}

	httpjson.Write(w, http.StatusOK, op)
}

// ServeGetMine handles GET /api/cases/{id}/opinions/mine.
func (h *Handler) ServeGetMine(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
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

	op, err := h.Opinions.GetByCaseAndAuthor(ctx, cs.ID, g.UserID)
	if err != nil {
		if errors.Is(err, opinionstore.ErrNotFound) {
			httpjson.NotFound(w, "no opinion submitted yet")
			return
		}
		h.Log.Error("get opinion failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	httpjson.Write(w, http.StatusOK, op)
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
