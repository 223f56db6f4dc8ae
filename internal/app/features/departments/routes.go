// internal/app/features/departments/routes.go
package departments

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving the department API.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList) // mounted under /api/departments
	r.Post("/", h.ServeCreate)
	r.Get("/{id}", h.ServeGet)
	r.Put("/{id}", h.ServeUpdate)
	r.Delete("/{id}", h.ServeDelete)
	return r
}
