package middlewarectx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/csrf"

	"github.com/magabrotheeeer/jam-admin/internal/config"
	"github.com/magabrotheeeer/jam-admin/internal/http/response"
)

const (
	// CSRFHeader заголовок, в котором клиент возвращает токен.
	CSRFHeader = "X-CSRF-Token"
	// CSRFCookieName cookie с секретом gorilla/csrf.
	CSRFCookieName = "jam_admin_csrf"
)

// ErrCSRFUnavailable токен для запроса не может быть выпущен.
var ErrCSRFUnavailable = errors.New("csrf token unavailable")

// CSRF проверяет токен на изменяющих запросах. Префиксы cfg.ExemptPrefixes
// пропускаются без проверки только вне production.
func CSRF(cfg config.CSRF, env string, log *slog.Logger) func(http.Handler) http.Handler {
	protect := csrf.Protect([]byte(cfg.AuthKey),
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.CookieName(CSRFCookieName),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.With(
				slog.String("op", "middlewarectx.CSRF"),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			).Warn("csrf check failed", slog.String("path", r.URL.Path), slog.Any("reason", csrf.FailureReason(r)))
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("csrf token missing or invalid"))
		})),
	)

	var exempt []string
	if env != config.EnvProd {
		exempt = cfg.ExemptPrefixes
	} else if len(cfg.ExemptPrefixes) > 0 {
		log.Warn("csrf exemptions ignored in production", slog.Any("prefixes", cfg.ExemptPrefixes))
	}

	return func(next http.Handler) http.Handler {
		h := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Secure {
				// без TLS gorilla/csrf не должна требовать https в Origin/Referer
				r = csrf.PlaintextHTTPRequest(r)
			}
			if exemptPath(r.URL.Path, exempt) {
				r = csrf.UnsafeSkipCheck(r)
			}
			h.ServeHTTP(w, r)
		})
	}
}

func exemptPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// CSRFToken возвращает токен для текущего запроса. Запрос должен пройти
// через CSRF, иначе возвращается ErrCSRFUnavailable.
func CSRFToken(r *http.Request) (string, error) {
	token := csrf.Token(r)
	if token == "" {
		return "", ErrCSRFUnavailable
	}
	return token, nil
}
