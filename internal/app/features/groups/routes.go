// internal/app/features/groups/routes.go
package groups

import "github.com/go-chi/chi/v5"

// Routes returns the group endpoints, mounted under /groups. Members,
// banks and recoveries mount their own routers under /groups/{id}/...
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeGroup)
	r.Patch("/{id}", h.HandleUpdate)
	return r
}
