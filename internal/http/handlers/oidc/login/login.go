// Package login начинает вход через внешнего провайдера: GET /auth/login.
package login

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/jam-admin/internal/http/response"
	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
)

// CookieName cookie с идентификатором попытки входа.
const CookieName = "jam_admin_oidc_login"

// Bridge выпускает state и адрес провайдера.
type Bridge interface {
	Begin(ctx context.Context) (loginID, redirectURL string, err error)
}

// Handler перенаправляет браузер к провайдеру.
type Handler struct {
	log      *slog.Logger
	bridge   Bridge
	stateTTL time.Duration
	secure   bool
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, bridge Bridge, stateTTL time.Duration, secure bool) *Handler {
	return &Handler{log: log, bridge: bridge, stateTTL: stateTTL, secure: secure}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.oidc.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	loginID, redirectURL, err := h.bridge.Begin(r.Context())
	if err != nil {
		log.Error("failed to begin federated login", sl.Err(err))
		response.WriteStatus(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    loginID,
		Path:     "/auth",
		MaxAge:   int(h.stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// ClearCookie удаляет cookie попытки входа.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
