// internal/app/features/users/routes.go
package users

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving the admin user management API.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList) // mounted under /api/users
	r.Post("/", h.ServeCreate)
	r.Get("/{id}", h.ServeGet)
	r.Put("/{id}", h.ServeUpdate)
	r.Put("/{id}/password", h.ServeSetPassword)
	r.Delete("/{id}/telegram", h.ServeUnlinkTelegram)
	r.Delete("/{id}", h.ServeDelete)
	return r
}
