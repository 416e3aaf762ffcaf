// internal/app/features/recoveries/routes.go
package recoveries

import "github.com/go-chi/chi/v5"

// Routes returns the recovery session endpoints. Mounted under
// /groups/{id}/recoveries.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetByDate)
	r.Post("/", h.Register)
	r.Get("/range", h.ListRange)
	r.Get("/prior", h.Prior)
	r.Put("/photo", h.SetPhoto)
	r.Put("/entries", h.UpsertEntry)
	r.Delete("/entries/{memberID}", h.RemoveEntry)
	return r
}
