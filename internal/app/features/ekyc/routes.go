// internal/app/features/ekyc/routes.go
package ekyc

import (
	"github.com/go-chi/chi/v5"
	"github.com/lamnbh/verihub/internal/app/system/auth"
)

// Routes mounts the enrollment routes. Enrollment is always performed by
// the user on their own record, so every route requires the user role.
// Typically: r.Mount("/ekyc", ekyc.Routes(handler, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole("user"))

		pr.Post("/cccd/validate", h.HandleValidateCCCD)
		pr.Get("/cccd/info", h.HandleCCCDInfo)
		pr.Post("/face-verify", h.HandleFaceVerify)
		pr.Post("/voice-collect", h.HandleVoiceCollect)
	})

	return r
}
