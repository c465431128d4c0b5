package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luckynumbers/api/internal/auth"
	"github.com/luckynumbers/api/internal/handlers"
	"github.com/luckynumbers/api/internal/middleware"
	"github.com/luckynumbers/api/internal/realtime"
	"github.com/luckynumbers/api/internal/services"
	pkghttp "github.com/luckynumbers/api/pkg/http"
	pkglogger "github.com/luckynumbers/api/pkg/logger"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	resultHandler *handlers.ResultHandler,
	tokenManager *auth.TokenManager,
	limiter *services.RateLimitService,
	tracker *services.AbuseTracker,
	auditLogger *pkglogger.AuditLogger,
	hub *realtime.Hub,
) {
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteSuccess(w, "ok", nil)
	})

	router.Get("/ws", hub.ServeWS)

	// Admin surface. The IP block check runs before any rate class so a
	// blocked address cannot even probe the login window.
	router.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.CheckBlockedIP(tracker, auditLogger))

		// Credential endpoints get the strict login window.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByClass(limiter, services.RouteLogin))
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
		})

		// Authenticated admin endpoints share the general admin window.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByClass(limiter, services.RouteAdmin))
			r.Use(auth.Protect(tokenManager))

			r.Get("/me", authHandler.Me)
			r.Post("/2fa/setup", authHandler.TwoFactorSetup)
			r.Post("/2fa/enable", authHandler.TwoFactorEnable)
			r.Post("/2fa/disable", authHandler.TwoFactorDisable)
			r.Post("/change-password", authHandler.ChangePassword)
			r.Post("/change-email", authHandler.ChangeEmail)

			r.Post("/results", resultHandler.Upsert)
			r.Put("/results/{date}", resultHandler.Edit)
			r.Post("/results/{date}/declare/fr", resultHandler.DeclareFirstRound)
			r.Post("/results/{date}/declare/sr", resultHandler.DeclareSecondRound)
			r.Post("/results/{date}/lock", resultHandler.Lock)
			r.Post("/results/{date}/unlock", resultHandler.Unlock)
		})
	})

	// Public result reads.
	router.Route("/api/results", func(r chi.Router) {
		r.Use(middleware.RateLimitByClass(limiter, services.RoutePublic))
		r.Get("/", resultHandler.History)
		r.Get("/today", resultHandler.Today)
		r.Get("/{date}", resultHandler.ByDate)
	})
}
