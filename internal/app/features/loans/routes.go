// internal/app/features/loans/routes.go
package loans

import "github.com/go-chi/chi/v5"

// Routes returns the loan ledger endpoints, mounted under
// /members/{memberID}/loans.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/active", h.ServeActive)
	return r
}
