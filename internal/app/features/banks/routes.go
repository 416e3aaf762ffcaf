// internal/app/features/banks/routes.go
package banks

import "github.com/go-chi/chi/v5"

// Routes returns the bank account endpoints, mounted under /groups/{id}/banks.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	return r
}
