// internal/app/features/authapi/routes.go
package authapi

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts all auth routes under the path where the caller mounts it.
// Typically: r.Mount("/auth", authapi.Routes(handler))
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/otp/send", h.HandleSendOTP)
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(h.SessionMgr.RequireSignedIn)
		pr.Get("/me", h.HandleMe)
	})

	return r
}
