// internal/app/features/admin/routes.go
package admin

import (
	"github.com/go-chi/chi/v5"
	"github.com/lamnbh/verihub/internal/app/system/auth"
)

// Routes mounts the admin routes.
// Typically: r.Mount("/admin", admin.Routes(handler, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("admin"))

		pr.Get("/accounts", h.HandleListAccounts)
		pr.Patch("/accounts/{id}/ban", h.HandleSetBanned)
		pr.Post("/businesses", h.HandleCreateBusiness)
	})

	return r
}
