// internal/app/features/opinions/routes.go
package opinions

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving a case's opinions.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList) // mounted under /api/cases/{id}/opinions
	r.Put("/", h.ServeSubmit)
	r.Get("/mine", h.ServeGetMine)
	return r
}
