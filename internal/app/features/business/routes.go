// internal/app/features/business/routes.go
package business

import (
	"github.com/go-chi/chi/v5"
	"github.com/lamnbh/verihub/internal/app/system/auth"
)

// Routes mounts the business verification routes.
// Typically: r.Mount("/business", business.Routes(handler, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("business"))

		pr.Post("/liveness-check", h.HandleLivenessCheck)
		pr.Post("/verify-face", h.HandleVerifyFace)
		pr.Post("/verify-voice", h.HandleVerifyVoice)
		pr.Post("/verification-result", h.HandleVerificationResult)
		pr.Get("/verification-log", h.HandleVerificationLog)
		pr.Get("/users", h.HandleListUsers)
	})

	// Admins also hold API keys, so rotation admits both roles.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("business", "admin"))

		pr.Patch("/update-api-key", h.HandleUpdateAPIKey)
	})

	return r
}
