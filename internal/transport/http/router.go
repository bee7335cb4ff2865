package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-otp-auth/internal/application/auth"
	"github.com/go-otp-auth/internal/config"
	"github.com/go-otp-auth/internal/pkg/password"
	"github.com/go-otp-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-otp-auth/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	// The gate runs before routing so unknown protected paths redirect too.
	r.Use(appmiddleware.Gate(deps.JWTProvider, cfg.ProtectedPrefixes, cfg.LoginPath))

	hasher := deps.Hasher
	if hasher == nil {
		hasher = password.NewHasher(password.DefaultCost)
	}
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:             deps.UserRepo,
		Notifier:             deps.Notifier,
		Credentials:          deps.JWTProvider,
		Hasher:               hasher,
		RequireVerifiedLogin: cfg.RequireVerifiedLogin,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, deps.UserRepo, cfg.IsProduction())

	r.Get(cfg.LoginPath, handler.LoginPage)
	r.Get("/dashboard", handler.Dashboard)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/register", authH.Register)
		r.Post("/verify-otp", authH.Verify)
		r.Post("/login", authH.Login)
		r.Post("/logout", authH.Logout)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.JWTProvider))

			r.Get("/me", authH.Me)
		})
	})

	return r
}
