// Package logout реализует выход: POST /api/auth/logout.
// Запрос без сессии тоже считается успешным.
package logout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jam-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jam-admin/internal/http/response"
	"github.com/magabrotheeeer/jam-admin/internal/models"
)

// Service закрывает сессию.
type Service interface {
	Logout(ctx context.Context, sess *models.Session, client *models.ClientMeta) error
}

// Handler обрабатывает выход.
type Handler struct {
	log     *slog.Logger
	svc     Service
	cookies middlewarectx.Cookies
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service, cookies middlewarectx.Cookies) *Handler {
	return &Handler{log: log, svc: svc, cookies: cookies}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if sess := middlewarectx.SessionFrom(r.Context()); sess != nil {
		if err := h.svc.Logout(r.Context(), sess, middlewarectx.ClientMeta(r)); err != nil {
			response.WriteError(w, r, log, "logout failed", err)
			return
		}
		log.Info("user logged out", slog.String("username", sess.Username))
	}

	h.cookies.Clear(w)
	render.JSON(w, r, response.Response{Status: response.StatusOK})
}
