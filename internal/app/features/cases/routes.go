// internal/app/features/cases/routes.go
package cases

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving the case API.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList) // mounted under /api/cases
	r.Post("/", h.ServeCreate)
	r.Get("/{id}", h.ServeGet)
	r.Put("/{id}", h.ServeUpdate)
	r.Put("/{id}/status", h.ServeSetStatus)
	r.Put("/{id}/specialists", h.ServeAssign)
	r.Delete("/{id}", h.ServeDelete)
	return r
}
