// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков и сопоставления ошибок
// сервисов с HTTP-статусами.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/jam-admin/internal/lib/password"
	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
	"github.com/magabrotheeeer/jam-admin/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters long", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters long", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// FromError сопоставляет ошибку сервиса с HTTP-статусом и текстом для клиента.
// Неизвестные ошибки становятся 500 без подробностей.
func FromError(err error) (int, Response) {
	var policyErr *password.PolicyError
	switch {
	case errors.As(err, &policyErr):
		return http.StatusBadRequest, Error(policyErr.Error())
	case errors.Is(err, models.ErrRegistrationClosed):
		return http.StatusBadRequest, Error(models.ErrRegistrationClosed.Error())
	case errors.Is(err, models.ErrInvalidRole):
		return http.StatusBadRequest, Error(models.ErrInvalidRole.Error())
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, Error(models.ErrInvalidCredentials.Error())
	case errors.Is(err, models.ErrUnauthenticated), errors.Is(err, models.ErrSessionNotFound):
		return http.StatusUnauthorized, Error(models.ErrUnauthenticated.Error())
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, Error(models.ErrForbidden.Error())
	case errors.Is(err, models.ErrAccountDisabled):
		return http.StatusForbidden, Error(models.ErrAccountDisabled.Error())
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden, Error(models.ErrAccessDenied.Error())
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, Error(models.ErrNotFound.Error())
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, Error(models.ErrConflict.Error())
	}
	return http.StatusInternalServerError, Error("internal error")
}

// IsClientError сообщает, что статус ошибки из диапазона 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}

// WriteError пишет ответ с ошибкой err. Ошибки клиента логируются на уровне
// Info, остальные на уровне Error.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	status, resp := FromError(err)
	if IsClientError(status) {
		log.Info(msg, sl.Err(err), slog.Int("status", status))
	} else {
		log.Error(msg, sl.Err(err), slog.Int("status", status))
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// WriteStatus пишет ответ с ошибкой msg и статусом status.
func WriteStatus(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}

// DecodeAndValidate читает JSON-тело в dst и проверяет его тегами validate.
// При ошибке сам пишет ответ 400 и возвращает false.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, v *validator.Validate, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		WriteStatus(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Info("validation failed", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ValidationError(verrs))
			return false
		}
		log.Error("validator misuse", sl.Err(err))
		WriteStatus(w, r, http.StatusInternalServerError, "internal error")
		return false
	}
	return true
}
