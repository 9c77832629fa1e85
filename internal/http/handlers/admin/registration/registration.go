// Package registration управляет флагом открытой регистрации:
// GET и PUT /api/admin/registration. Оба доступны только super_admin.
package registration

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

// Gate читает и меняет флаг регистрации.
type Gate interface {
	IsOpen(ctx context.Context) (bool, error)
	SetOpen(ctx context.Context, enabled bool, actor *models.Actor, client *models.ClientMeta) error
}

// Request тело PUT. Указатель отличает отсутствующее поле от false.
type Request struct {
	Enabled *bool `json:"enabled"`
}

// Setting тело ответа.
type Setting struct {
	Enabled bool `json:"enabled"`
}

// Handler обрабатывает чтение и запись флага.
type Handler struct {
	log  *slog.Logger
	gate Gate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, gate Gate) *Handler {
	return &Handler{log: log, gate: gate}
}

// Get отдаёт текущее значение.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.registration.Get"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	open, err := h.gate.IsOpen(r.Context())
	if err != nil {
		response.WriteError(w, r, log, "failed to read registration setting", err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(Setting{Enabled: open}))
}

// Put сохраняет новое значение.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.registration.Put"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Enabled == nil {
		log.Info("enabled is not a boolean")
		response.WriteStatus(w, r, http.StatusBadRequest, "enabled must be a boolean")
		return
	}

	sess := middlewarectx.SessionFrom(r.Context())
	var actor *models.Actor
	if sess != nil {
		actor = &models.Actor{UserID: sess.UserID, Username: sess.Username}
	}

	if err := h.gate.SetOpen(r.Context(), *req.Enabled, actor, middlewarectx.ClientMeta(r)); err != nil {
		response.WriteError(w, r, log, "failed to update registration setting", err)
		return
	}

	log.Info("registration setting updated", slog.Bool("enabled", *req.Enabled))
	render.JSON(w, r, response.StatusOKWithData(Setting{Enabled: *req.Enabled}))
}
