package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/elevate-app/elevate-backend/internal/alert"
	"github.com/elevate-app/elevate-backend/internal/auth"
	"github.com/elevate-app/elevate-backend/internal/config"
	"github.com/elevate-app/elevate-backend/internal/httputil"
	"github.com/elevate-app/elevate-backend/internal/location"
	"github.com/elevate-app/elevate-backend/internal/logging"
)

// NewRouter wires every endpoint. Alert and location routes sit behind the
// session-token middleware; credential routes are public.
func NewRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	alertHandler *alert.Handler,
	locationHandler *location.Handler,
	authMiddleware *auth.Middleware,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/ping", handlePing)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/verify-email", authHandler.VerifyEmail)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Post("/send-verification", authHandler.SendVerification)
		})
	})

	r.Post("/users", authHandler.Register)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Put("/location", locationHandler.Update)
		r.Get("/location", locationHandler.Get)
		r.Get("/location/address", locationHandler.Address)
		r.Put("/device-token", locationHandler.RegisterDeviceToken)

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/types", alertHandler.Types)
			r.Get("/viewport", alertHandler.ByViewport)
			r.Post("/", alertHandler.Create)
			r.Put("/{id}", alertHandler.Update)
			r.Post("/{id}/resolve", alertHandler.Resolve)
			r.Delete("/{id}", alertHandler.Delete)
		})
	})

	return r
}

func handlePing(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "server is alive"}, http.StatusOK)
}
