// Package login реализует вход по паролю: POST /api/auth/login.
package login

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/jam-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jam-admin/internal/http/response"
	"github.com/magabrotheeeer/jam-admin/internal/models"
)

// Request — входные данные для входа
type Request struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

// Service проверяет учётные данные и открывает сессию.
type Service interface {
	Login(ctx context.Context, username, plain string, client *models.ClientMeta) (*models.User, *models.Session, error)
}

// Handler обрабатывает вход по паролю.
type Handler struct {
	log      *slog.Logger
	svc      Service
	cookies  middlewarectx.Cookies
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service, cookies middlewarectx.Cookies) *Handler {
	return &Handler{
		log:      log,
		svc:      svc,
		cookies:  cookies,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if !response.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}

	user, sess, err := h.svc.Login(r.Context(), req.Username, req.Password, middlewarectx.ClientMeta(r))
	if err != nil {
		response.WriteError(w, r, log, "login failed", err)
		return
	}

	h.cookies.Set(w, sess)
	log.Info("user logged in", slog.String("username", user.Username))
	render.JSON(w, r, response.StatusOKWithData(user))
}
