// internal/app/features/members/routes.go
package members

import "github.com/go-chi/chi/v5"

// GroupRoutes serves the members of one group, mounted under
// /groups/{id}/members.
func GroupRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	return r
}

// Routes serves single members, mounted under /members.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{memberID}", h.ServeMember)
	r.Patch("/{memberID}", h.HandleUpdate)
	return r
}
