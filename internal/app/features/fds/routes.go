// internal/app/features/fds/routes.go
package fds

import "github.com/go-chi/chi/v5"

// Routes returns the fixed deposit endpoints, mounted under /fds.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Post("/mature-due", h.HandleMatureDue)
	r.Get("/{id}", h.ServeFD)
	r.Post("/{id}/mature", h.HandleMature)
	return r
}
