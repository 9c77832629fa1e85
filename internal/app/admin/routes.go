package admin

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/jam-admin/internal/config"
	adminregistration "github.com/magabrotheeeer/jam-admin/internal/http/handlers/admin/registration"
	"github.com/magabrotheeeer/jam-admin/internal/http/handlers/admin/users"
	"github.com/magabrotheeeer/jam-admin/internal/http/handlers/auth/csrftoken"
	"github.com/magabrotheeeer/jam-admin/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/jam-admin/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/jam-admin/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/jam-admin/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/jam-admin/internal/http/handlers/auth/registrationstatus"
	"github.com/magabrotheeeer/jam-admin/internal/http/handlers/health"
	"github.com/magabrotheeeer/jam-admin/internal/http/handlers/oidc/callback"
	oidclogin "github.com/magabrotheeeer/jam-admin/internal/http/handlers/oidc/login"
	"github.com/magabrotheeeer/jam-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jam-admin/internal/metrics"
)

// Pinger зависимость для /healthz.
type Pinger = health.Pinger

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, cfg *config.Config, logger *slog.Logger, svcs *Services, pingers map[string]Pinger) {
	cookies := middlewarectx.Cookies{Name: cfg.CookieName, Secure: cfg.SecureCookie}
	guard := middlewarectx.NewGuard(cfg.UnsafeDevAuthBypass, logger)
	limiter := middlewarectx.NewRateLimiter(cfg.RPS, cfg.Burst, logger)

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		metrics.HTTPMetricsMiddleware,
	)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", health.New(logger, pingers).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(
			middlewarectx.SessionLoader(svcs.Sessions, cfg.CookieName, logger),
			middlewarectx.CSRF(cfg.CSRF, cfg.Env, logger),
		)

		r.Route("/api/auth", func(r chi.Router) {
			r.With(limiter.Middleware).Post("/register", register.New(logger, svcs.Bootstrap).ServeHTTP)
			r.With(limiter.Middleware).Post("/login", login.New(logger, svcs.Auth, cookies).ServeHTTP)
			r.Post("/logout", logout.New(logger, svcs.Auth, cookies).ServeHTTP)
			r.Get("/me", me.New().ServeHTTP)
			r.Get("/registration-status", registrationstatus.New(logger, svcs.Gate).ServeHTTP)
			r.Get("/csrf-token", csrftoken.New(logger, cfg.CSRF.Secure).ServeHTTP)
		})

		if svcs.OIDC != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Get("/login", oidclogin.New(logger, svcs.OIDC, cfg.StateTTL, cfg.SecureCookie).ServeHTTP)
				r.Get("/callback", callback.New(logger, svcs.OIDC, cookies, callback.Options{
					SuccessRedirect: cfg.SuccessRedirect,
					Verbose:         !cfg.Production(),
				}).ServeHTTP)
			})
		}

		r.Route("/api/admin", func(r chi.Router) {
			reg := adminregistration.New(logger, svcs.Gate)
			usr := users.New(logger, svcs.Auth)

			r.Group(func(r chi.Router) {
				r.Use(guard.RequireAdmin)
				r.Put("/users/{id}/password", usr.Password)
			})
			r.Group(func(r chi.Router) {
				r.Use(guard.RequireSuperAdmin)
				r.Get("/registration", reg.Get)
				r.Put("/registration", reg.Put)
				r.Put("/users/{id}/role", usr.Role)
				r.Put("/users/{id}/active", usr.Active)
			})
		})
	})
}
