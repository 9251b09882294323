package http

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/logging"
	"github.com/merit-ol/mppms/internal/metrics"
	"github.com/merit-ol/mppms/internal/middleware"
)

type RouterOptions struct {
	AllowedOrigins []string
	Metrics        bool
}

func NewRouter(handler *Handler, authMiddleware *middleware.AuthMiddleware, log zerolog.Logger, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logging.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	if opts.Metrics {
		r.Use(metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handler.Health)
	r.Get("/ready", handler.Ready)
	if opts.Metrics {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handler.Register)
			r.Post("/login", handler.Login)
			r.Post("/google", handler.GoogleLogin)
			r.Get("/google/url", handler.GoogleAuthURL)
			r.Post("/refresh", handler.RefreshToken)
			r.Post("/logout", handler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Get("/me", handler.GetCurrentUser)
			})
		})

		r.Route("/papers", func(r chi.Router) {
			r.Get("/", handler.ListPapers)
			r.Get("/{id}/download", handler.DownloadPaper)
			r.With(authMiddleware.Optional).Get("/{id}", handler.GetPaper)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Use(middleware.Require(domain.RoleStaff))

				r.Post("/", handler.CreatePaper)
				r.Put("/{id}", handler.UpdatePaper)
				r.Delete("/{id}", handler.DeletePaper)

				r.Group(func(r chi.Router) {
					r.Use(middleware.Require(domain.RoleAdmin))
					r.Get("/deleted", handler.ListDeletedPapers)
					r.Post("/{id}/restore", handler.RestorePaper)
				})
				r.With(middleware.Require(domain.RoleSuperAdmin)).Delete("/{id}/purge", handler.PurgePaper)
			})
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/filters", handler.GetFilters)
			r.Get("/socials", handler.GetSocials)
			r.Get("/donation", handler.GetDonation)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Use(middleware.Require(domain.RoleSuperAdmin))
				r.Put("/filters", handler.UpdateFilters)
				r.Put("/socials", handler.UpdateSocials)
				r.Put("/donation", handler.UpdateDonation)
			})
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/", handler.GetStats)
			r.Post("/{kind}", handler.IncrementStat)
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(middleware.Require(domain.RoleAdmin))

			r.Get("/notifications", handler.ListNotifications)
			r.Route("/admin", func(r chi.Router) {
				r.Get("/users", handler.ListUsers)
				r.Put("/users/{id}/role", handler.SetUserRole)
				r.Put("/users/{id}/block", handler.SetUserBlocked)
				r.With(middleware.Require(domain.RoleSuperAdmin)).Post("/ownership", handler.TransferOwnership)
			})
		})
	})

	return r
}
