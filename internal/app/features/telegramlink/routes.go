// internal/app/features/telegramlink/routes.go
package telegramlink

import "github.com/go-chi/chi/v5"

// Routes returns the authenticated linking subrouter, mounted under
// /api/telegram.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeStatus)
	r.Post("/link", h.ServeIssueCode)
	r.Post("/verify", h.ServeVerify)
	r.Delete("/link", h.ServeUnlink)
	return r
}

// WebhookRoutes returns the unauthenticated bot webhook subrouter, mounted
// under /telegram/webhook outside the session middleware.
func WebhookRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/{secret}", h.ServeWebhook)
	return r
}
