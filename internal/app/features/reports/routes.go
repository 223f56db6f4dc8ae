// internal/app/features/reports/routes.go
package reports

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving a case's consensus report.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeGet) // mounted under /api/cases/{id}/report
	r.Put("/", h.ServePut)
	r.Post("/finalize", h.ServeFinalize)
	return r
}
