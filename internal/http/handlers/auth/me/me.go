// Package me возвращает текущую сессию: GET /api/auth/me.
package me

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jam-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jam-admin/internal/http/response"
	"github.com/magabrotheeeer/jam-admin/internal/models"
)

// Handler отдаёт данные сессии или 401.
type Handler struct{}

// New создает новый экземпляр Handler.
func New() *Handler {
	return &Handler{}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := middlewarectx.SessionFrom(r.Context())
	if sess == nil {
		response.WriteStatus(w, r, http.StatusUnauthorized, models.ErrUnauthenticated.Error())
		return
	}
	render.JSON(w, r, response.StatusOKWithData(sess))
}
