// internal/app/features/attachments/routes.go
package attachments

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter serving case attachments. Mounted under
// /api/cases/{id}/attachments so {id} is the owning case.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.ServeUpload)
	r.Get("/{attID}", h.ServeDownload)
	r.Get("/{attID}/pdf", h.ServePDF)
	r.Delete("/{attID}", h.ServeDelete)
	return r
}
