// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	notifstore "github.com/clarityhealth/claritymdt/internal/app/store/notifications"
	"github.com/clarityhealth/claritymdt/internal/app/system/gates"
	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"github.com/clarityhealth/claritymdt/internal/app/system/timeouts"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves a user's own notification inbox. Every operation is
// scoped to the session user; another user's notification reads as
// not-found rather than forbidden so ids cannot be probed.
type Handler struct {
	Notifications *notifstore.Store
	Log           *zap.Logger
}

func NewHandler(notifications *notifstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Notifications: notifications,
		Log:           logger,
	}
}

// ServeList handles GET /api/notifications?unread=1&limit=n.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "1"
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			httpjson.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Notifications.ListByUser(ctx, g.UserID, unreadOnly, limit)
	if err != nil {
		h.Log.Error("list notifications failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	httpjson.Write(w, http.StatusOK, list)
}

// ServeUnreadCount handles GET /api/notifications/unread-count.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	count, err := h.Notifications.UnreadCount(ctx, g.UserID)
	if err != nil {
		h.Log.Error("unread count failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]int64{"unread": count})
}

// ServeMarkRead handles PUT /api/notifications/{id}/read.
func (h *Handler) ServeMarkRead(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notifications.MarkRead(ctx, id, g.UserID); err != nil {
		if errors.Is(err, notifstore.ErrNotFound) {
			httpjson.NotFound(w, "notification not found")
			return
		}
		h.Log.Error("mark read failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeMarkAllRead handles PUT /api/notifications/read-all.
func (h *Handler) ServeMarkAllRead(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	updated, err := h.Notifications.MarkAllRead(ctx, g.UserID)
	if err != nil {
		h.Log.Error("mark all read failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]int64{"updated": updated})
}

// ServeDelete handles DELETE /api/notifications/{id}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	g := gates.RequireAuth(w, r)
	if !g.OK {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notifications.Delete(ctx, id, g.UserID); err != nil {
		if errors.Is(err, notifstore.ErrNotFound) {
			httpjson.NotFound(w, "notification not found")
			return
		}
		h.Log.Error("delete notification failed", zap.Error(err))
		httpjson.Internal(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid notification id")
		return primitive.NilObjectID, false
	}
	return oid, true
}
