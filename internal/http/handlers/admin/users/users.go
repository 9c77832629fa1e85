// Package users содержит административные операции над учётными записями:
// смену пароля, роли и активности.
package users

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/jam-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jam-admin/internal/http/response"
	"github.com/magabrotheeeer/jam-admin/internal/models"
)

// Service административные операции.
type Service interface {
	ChangePassword(ctx context.Context, actor *models.Session, targetID int64, plain string, client *models.ClientMeta) error
	SetRole(ctx context.Context, actor *models.Session, targetID int64, role models.Role, client *models.ClientMeta) (*models.User, error)
	SetActive(ctx context.Context, actor *models.Session, targetID int64, active bool, client *models.ClientMeta) (*models.User, error)
}

// PasswordRequest тело PUT /users/{id}/password.
type PasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// RoleRequest тело PUT /users/{id}/role.
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin super_admin"`
}

// ActiveRequest тело PUT /users/{id}/active. Указатель отличает
// отсутствующее поле от false.
type ActiveRequest struct {
	Active *bool `json:"active"`
}

// Handler обрабатывает запросы к /api/admin/users.
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

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// targetID читает {id} из пути. При ошибке сам пишет 400.
func targetID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		log.Info("invalid user id", slog.String("id", raw))
		response.WriteStatus(w, r, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

// Password меняет пароль пользователя.
func (h *Handler) Password(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.Password")

	id, ok := targetID(w, r, log)
	if !ok {
		return
	}
	var req PasswordRequest
	if !response.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}

	err := h.svc.ChangePassword(r.Context(), middlewarectx.SessionFrom(r.Context()), id, req.Password, middlewarectx.ClientMeta(r))
	if err != nil {
		response.WriteError(w, r, log, "failed to change password", err)
		return
	}
	log.Info("password changed", slog.Int64("user_id", id))
	render.JSON(w, r, response.Response{Status: response.StatusOK})
}

// Role меняет роль пользователя.
func (h *Handler) Role(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.Role")

	id, ok := targetID(w, r, log)
	if !ok {
		return
	}
	var req RoleRequest
	if !response.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}

	user, err := h.svc.SetRole(r.Context(), middlewarectx.SessionFrom(r.Context()), id, models.Role(req.Role), middlewarectx.ClientMeta(r))
	if err != nil {
		response.WriteError(w, r, log, "failed to change role", err)
		return
	}
	log.Info("role changed", slog.Int64("user_id", id), slog.String("role", req.Role))
	render.JSON(w, r, response.StatusOKWithData(user))
}

// Active включает или отключает учётную запись.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.users.Active")

	id, ok := targetID(w, r, log)
	if !ok {
		return
	}
	var req ActiveRequest
	if !response.DecodeAndValidate(w, r, log, h.validate, &req) {
		return
	}
	if req.Active == nil {
		response.WriteStatus(w, r, http.StatusBadRequest, "active must be a boolean")
		return
	}

	user, err := h.svc.SetActive(r.Context(), middlewarectx.SessionFrom(r.Context()), id, *req.Active, middlewarectx.ClientMeta(r))
	if err != nil {
		response.WriteError(w, r, log, "failed to change active flag", err)
		return
	}
	log.Info("active flag changed", slog.Int64("user_id", id), slog.Bool("active", *req.Active))
	render.JSON(w, r, response.StatusOKWithData(user))
}
