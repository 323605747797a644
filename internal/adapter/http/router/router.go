// Package router wires the HTTP handlers onto a chi mux.
package router

import (
	"net"
	"net/http"

	"github.com/EMe-U/plotsure/internal/adapter/http/handler"
	"github.com/EMe-U/plotsure/internal/adapter/http/middleware"
	"github.com/EMe-U/plotsure/internal/adapter/http/response"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/platform/metrics"
	userdomain "github.com/EMe-U/plotsure/internal/user/domain"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

const defaultMaxBodyBytes = 10 << 20

// Deps are the collaborators of the HTTP surface. Limiter and Metrics may be nil.
type Deps struct {
	Auth      *handler.AuthHandler
	TwoFactor *handler.TwoFactorHandler
	Listings  *handler.ListingHandler
	Inquiries *handler.InquiryHandler
	Contacts  *handler.ContactHandler
	Reports   *handler.ReportHandler
	Health    *handler.HealthHandler
	Uploads   *handler.UploadHandler

	Authenticator *middleware.Authenticator
	Limiter       middleware.Limiter
	Metrics       *metrics.MetricsManager
	Logger        *logger.Logger

	AllowedOrigins []string
	TrustedProxies []*net.IPNet
	MaxBodyBytes   int64
}

var (
	staff = middleware.RequireRole(userdomain.RoleAdmin, userdomain.RoleBroker)
	admin = middleware.RequireRole(userdomain.RoleAdmin)
)

func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, middleware.RealIP(d.TrustedProxies))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.SecurityHeaders, middleware.RequestMeta)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, response.CodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})

	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r.Route("/api", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(middleware.RateLimit(d.Limiter))
		}
		r.Use(middleware.BodyLimit(maxBody))

		r.Get("/health", d.Health.Health)
		r.Get("/health/db", d.Health.Dependencies)

		setupAuthRoutes(r, d)
		setupTwoFactorRoutes(r, d)
		setupListingRoutes(r, d)
		setupInquiryRoutes(r, d)
		setupContactRoutes(r, d)
		setupReportRoutes(r, d)
		setupAdminRoutes(r, d)
	})

	r.Get("/uploads/*", d.Uploads.Serve)
	r.Head("/uploads/*", d.Uploads.Serve)

	return corsHandler(d.AllowedOrigins).Handler(r)
}

func corsHandler(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: !(len(origins) == 1 && origins[0] == "*"),
		MaxAge:           600,
	})
}

func setupAuthRoutes(r chi.Router, d Deps) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", d.Auth.Register)
		r.Post("/login", d.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(d.Authenticator.Required)
			r.Get("/profile", d.Auth.GetProfile)
			r.Put("/profile", d.Auth.UpdateProfile)
			r.Put("/change-password", d.Auth.ChangePassword)
			r.Post("/logout", d.Auth.Logout)

			r.With(admin).Get("/users", d.Auth.ListUsers)
			r.With(admin).Put("/users/{id}/activate", d.Auth.ActivateUser)
			r.With(admin).Put("/users/{id}/deactivate", d.Auth.DeactivateUser)
		})
	})
}

func setupTwoFactorRoutes(r chi.Router, d Deps) {
	r.Route("/2fa", func(r chi.Router) {
		r.Use(d.Authenticator.Required)
		r.With(admin).Post("/setup", d.TwoFactor.Setup)
		r.Post("/verify", d.TwoFactor.Verify)
		r.With(admin).Post("/disable", d.TwoFactor.Disable)
		r.Get("/status", d.TwoFactor.Status)
	})
}

func setupListingRoutes(r chi.Router, d Deps) {
	r.Route("/listings", func(r chi.Router) {
		r.With(d.Authenticator.Optional).Get("/", d.Listings.List)
		r.With(d.Authenticator.Optional).Get("/{id}", d.Listings.Get)

		r.Group(func(r chi.Router) {
			r.Use(d.Authenticator.Required, staff)
			r.Post("/", d.Listings.Create)
			r.Get("/broker/my-listings", d.Listings.ListMine)
			r.Get("/stats/overview", d.Listings.Stats)
			r.Put("/{id}", d.Listings.Update)
			r.Delete("/{id}", d.Listings.Delete)
			r.Post("/{id}/media", d.Listings.AddMedia)

			r.With(admin).Put("/{id}/featured", d.Listings.SetFeatured)
			r.With(admin).Put("/{id}/verify", d.Listings.Verify)
		})
	})
}

func setupInquiryRoutes(r chi.Router, d Deps) {
	r.Route("/inquiries", func(r chi.Router) {
		r.With(d.Authenticator.Optional).Post("/", d.Inquiries.Create)

		r.Group(func(r chi.Router) {
			r.Use(d.Authenticator.Required, staff)
			r.Get("/", d.Inquiries.List)
			r.Get("/stats", d.Inquiries.Stats)
			r.Get("/{id}", d.Inquiries.Get)
			r.Put("/{id}/status", d.Inquiries.UpdateStatus)
			r.Put("/{id}/convert", d.Inquiries.Convert)
			r.With(admin).Put("/{id}/assign", d.Inquiries.Assign)
			r.With(admin).Delete("/{id}", d.Inquiries.Delete)
		})
	})
}

func setupContactRoutes(r chi.Router, d Deps) {
	r.Route("/contact", func(r chi.Router) {
		r.With(d.Authenticator.Optional).Post("/", d.Contacts.Submit)

		r.Group(func(r chi.Router) {
			r.Use(d.Authenticator.Required, staff)
			r.Get("/", d.Contacts.List)
			r.Get("/stats", d.Contacts.Stats)
			r.Put("/{id}/status", d.Contacts.UpdateStatus)
		})
	})
}

func setupReportRoutes(r chi.Router, d Deps) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(d.Authenticator.Required, admin)
		r.Get("/activity-logs", d.Reports.ActivityLogs)
		r.Get("/activity-logs/export", d.Reports.ExportActivityLogs)
		r.Get("/system-stats", d.Reports.SystemStats)
		r.Get("/user-activity/{user_id}", d.Reports.UserActivity)
		r.Get("/activity-trends", d.Reports.Trends)
	})
}

func setupAdminRoutes(r chi.Router, d Deps) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(d.Authenticator.Required, admin)
		r.Get("/activity-logs", d.Reports.AdminActivityLogs)
		r.Get("/dashboard", d.Reports.SystemStats)
	})
}
