// internal/app/features/meetings/handler.go
package meetings

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/clarityhealth/claritymdt/internal/app/policy/meetingpolicy"
	meetingstore "github.com/clarityhealth/claritymdt/internal/app/store/meetings"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
	"github.com/clarityhealth/claritymdt/internal/app/system/authz"
	"github.com/clarityhealth/claritymdt/internal/app/system/gates"
	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"github.com/clarityhealth/claritymdt/internal/app/system/notify"
	"github.com/clarityhealth/claritymdt/internal/app/system/timeouts"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the meeting scheduling API.
type Handler struct {
	Meetings *meetingstore.Store
	Notifier *notify.Notifier
	Log      *zap.Logger
	AuditLog *auditlog.Logger
}

func NewHandler(meetings *meetingstore.Store, notifier *notify.Notifier, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Meetings: meetings,
		Notifier: notifier,
		Log:      logger,
		AuditLog: audit,
	}
}

type meetingRequest struct {
	Title          string    `json:"title"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Location       string    `json:"location,omitempty"`
	CaseIDs        []string  `json:"case_ids,omitempty"`
	ParticipantIDs []string  `json:"participant_ids,omitempty"`
}

// ServeList handles GET /api/meetings. Managers see all meetings; other
// roles only those they participate in.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	filter := meetingstore.ListFilter{}
	if g.Role != authz.RoleAdmin && g.Role != authz.RoleCoordinator {
		uid := g.UserID
		filter.ParticipantID = &uid
	}
	if caseHex := r.URL.Query().Get("case_id"); caseHex != "" {
		oid, err := primitive.ObjectIDFromHex(caseHex)
		if err != nil {
			httpjson.BadRequest(w, "invalid case_id")
			return
		}
		filter.CaseID = &oid
	}
	if r.URL.Query().Get("upcoming") == "1" {
		now := time.Now()
		filter.From = &now
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Meetings.List(ctx, filter)
	if err != nil {
		h.Log.Error("list meetings failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	if list == nil {
		list = []models.Meeting{}
	}
	httpjson.Write(w, http.StatusOK, list)
}

// ServeCreate handles POST /api/meetings. Every participant gets a
// meeting_scheduled notification; persistence is required, Telegram
// forwarding is advisory.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins schedule meetings")
	if !g.OK {
		return
	}

	var req meetingRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}
	caseIDs, ok := parseObjectIDs(w, req.CaseIDs, "invalid case id")
	if !ok {
		return
	}
	participantIDs, ok := parseObjectIDs(w, req.ParticipantIDs, "invalid participant id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Meetings.Create(ctx, models.Meeting{
		Title:          req.Title,
		ScheduledAt:    req.ScheduledAt,
		Location:       req.Location,
		CaseIDs:        caseIDs,
		ParticipantIDs: participantIDs,
		CreatedBy:      g.UserID,
	})
	if err != nil {
		httpjson.BadRequest(w, err.Error())
		return
	}

	h.AuditLog.MeetingScheduled(ctx, r, g.UserID, created.ID, g.Role)
	h.fanOut(r.Context(), created, models.NotifyMeetingScheduled, "MDT meeting scheduled: "+created.Title)
	httpjson.Write(w, http.StatusCreated, created)
}

// ServeGet handles GET /api/meetings/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	if g := gates.RequireAuth(w, r); !g.OK {
		return
	}
	m, ok := h.loadMeeting(w, r)
	if !ok {
		return
	}
	if !meetingpolicy.CanView(r, m) {
		httpjson.Forbidden(w, "")
		return
	}
	httpjson.Write(w, http.StatusOK, m)
}

// ServeUpdate handles PUT /api/meetings/{id}. Participants are told the
// meeting changed, including anyone newly added.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins manage meetings")
	if !g.OK {
		return
	}
	m, ok := h.loadMeeting(w, r)
	if !ok {
		return
	}

	var req meetingRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.BadRequest(w, "invalid request body")
		return
	}
	caseIDs, ok := parseObjectIDs(w, req.CaseIDs, "invalid case id")
	if !ok {
		return
	}
	participantIDs, ok := parseObjectIDs(w, req.ParticipantIDs, "invalid participant id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Meetings.Update(ctx, m.ID, meetingstore.Update{
		Title:          req.Title,
		ScheduledAt:    req.ScheduledAt,
		Location:       req.Location,
		CaseIDs:        caseIDs,
		ParticipantIDs: participantIDs,
	})
	if err != nil {
		if errors.Is(err, meetingstore.ErrNotFound) {
			httpjson.NotFound(w, "meeting not found")
			return
		}
		httpjson.BadRequest(w, err.Error())
		return
	}

	updated := *m
	updated.Title = req.Title
	updated.ScheduledAt = req.ScheduledAt
	updated.ParticipantIDs = participantIDs
	h.fanOut(r.Context(), updated, models.NotifyMeetingUpdated, "MDT meeting updated: "+req.Title)
	w.WriteHeader(http.StatusNoContent)
}

// ServeDelete handles DELETE /api/meetings/{id}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireCaseManager(w, r, "only coordinators and admins manage meetings")
	if !g.OK {
		return
	}
	m, ok := h.loadMeeting(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Meetings.Delete(ctx, m.ID); err != nil {
		if errors.Is(err, meetingstore.ErrNotFound) {
			httpjson.NotFound(w, "meeting not found")
			return
		}
		h.Log.Error("delete meeting failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fanOut notifies every participant about a meeting event. The rows are
// persisted even when no Telegram forward goes out.
func (h *Handler) fanOut(ctx context.Context, m models.Meeting, notifType, title string) {
	if len(m.ParticipantIDs) == 0 {
		return
	}
	message := m.ScheduledAt.Format("Mon 2 Jan 2006 15:04")
	if m.Location != "" {
		message += " at " + m.Location
	}
	res, err := h.Notifier.NotifyMany(ctx, m.ParticipantIDs, models.Notification{
		Type:      notifType,
		Title:     title,
		Message:   message,
		MeetingID: &m.ID,
	})
	if err != nil {
		h.Log.Warn("meeting notification fan-out failed",
			zap.String("meeting_id", m.ID.Hex()), zap.Error(err))
		return
	}
	h.Log.Info("meeting notifications sent",
		zap.String("meeting_id", m.ID.Hex()),
		zap.Int("persisted", len(res.Persisted)),
		zap.Int("forwarded", res.Forwarded))
}

func (h *Handler) loadMeeting(w http.ResponseWriter, r *http.Request) (*models.Meeting, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid meeting id")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.Meetings.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, meetingstore.ErrNotFound) {
			httpjson.NotFound(w, "meeting not found")
			return nil, false
		}
		h.Log.Error("get meeting failed", zap.Error(err))
		httpjson.Internal(w)
		return nil, false
	}
	return m, true
}

func parseObjectIDs(w http.ResponseWriter, hexes []string, badMsg string) ([]primitive.ObjectID, bool) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, hx := range hexes {
		oid, err := primitive.ObjectIDFromHex(hx)
		if err != nil {
			httpjson.BadRequest(w, badMsg)
			return nil, false
		}
		out = append(out, oid)
	}
	return out, true
}
