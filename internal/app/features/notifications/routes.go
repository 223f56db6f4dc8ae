// internal/app/features/notifications/routes.go
package notifications

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving the notification inbox.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList) // mounted under /api/notifications
	r.Get("/unread-count", h.ServeUnreadCount)
	r.Put("/read-all", h.ServeMarkAllRead)
	r.Put("/{id}/read", h.ServeMarkRead)
	r.Delete("/{id}", h.ServeDelete)
	return r
}
