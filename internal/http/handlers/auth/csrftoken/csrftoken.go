// Package csrftoken выдаёт токен CSRF: GET /api/auth/csrf-token.
// Токен дублируется в cookie XSRF-TOKEN, доступной скриптам фронтенда.
package csrftoken

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jam-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jam-admin/internal/http/response"
	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
)

// CookieName cookie с токеном для фронтенда.
const CookieName = "XSRF-TOKEN"

// Token тело ответа.
type Token struct {
	CSRFToken string `json:"csrfToken"`
}

// Handler выдаёт токен.
type Handler struct {
	log    *slog.Logger
	secure bool
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, secure bool) *Handler {
	return &Handler{log: log, secure: secure}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.csrftoken"

	token, err := middlewarectx.CSRFToken(r)
	if err != nil {
		h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		).Error("failed to issue csrf token", sl.Err(err))
		response.WriteStatus(w, r, http.StatusInternalServerError, "csrf token unavailable")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Cache-Control", "no-store")
	render.JSON(w, r, response.StatusOKWithData(Token{CSRFToken: token}))
}
