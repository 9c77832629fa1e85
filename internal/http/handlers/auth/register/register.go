// Package register реализует самостоятельную регистрацию: POST /api/auth/register.
//
// 201 — пользователь создан (роль в ответе), 400 — регистрация закрыта или
// пароль слабый, 409 — имя или email заняты.
package register

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
	"github.com/magabrotheeeer/jam-admin/internal/services/bootstrap"
)

// Request — входные данные для регистрации
type Request struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

// Service регистрирует пользователя.
type Service interface {
	Register(ctx context.Context, req bootstrap.Request) (*models.User, error)
}

// Handler обрабатывает регистрацию.
type Handler struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{
		log:      log,
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if !response.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}

	user, err := h.svc.Register(r.Context(), bootstrap.Request{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Client:   middlewarectx.ClientMeta(r),
	})
	if err != nil {
		response.WriteError(w, r, log, "registration failed", err)
		return
	}

	log.Info("user registered", slog.String("username", user.Username), slog.String("role", string(user.Role)))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(user))
}
