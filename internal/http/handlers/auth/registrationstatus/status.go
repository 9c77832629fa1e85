// Package registrationstatus сообщает, открыта ли регистрация:
// GET /api/auth/registration-status. Доступен без сессии.
package registrationstatus

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jam-admin/internal/http/response"
)

// Gate читает флаг открытой регистрации.
type Gate interface {
	IsOpen(ctx context.Context) (bool, error)
}

// Status тело ответа.
type Status struct {
	Enabled bool `json:"enabled"`
}

// Handler отдаёт состояние регистрации.
type Handler struct {
	log  *slog.Logger
	gate Gate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, gate Gate) *Handler {
	return &Handler{log: log, gate: gate}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.registrationstatus"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	open, err := h.gate.IsOpen(r.Context())
	if err != nil {
		response.WriteError(w, r, log, "failed to read registration setting", err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(Status{Enabled: open}))
}
