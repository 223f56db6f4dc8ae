// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving the password login endpoint.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleLogin) // mounted under /login
	return r
}
