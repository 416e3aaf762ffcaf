// internal/app/features/payments/routes.go
package payments

import "github.com/go-chi/chi/v5"

// Routes returns the payment endpoints, mounted under /payments.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServePayment)
	r.Post("/{id}/approve", h.HandleApprove)
	r.Post("/{id}/reject", h.HandleReject)
	r.Post("/{id}/complete", h.HandleComplete)
	return r
}
