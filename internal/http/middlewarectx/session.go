// Package middlewarectx содержит HTTP middleware подсистемы: загрузку сессии
// из cookie, проверку роли, защиту от CSRF и ограничение частоты запросов.
//
// SessionLoader кладёт сессию в контекст запроса. RequireAdmin и
// RequireSuperAdmin читают её оттуда и пропускают запрос дальше только при
// достаточной роли.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
	"github.com/magabrotheeeer/jam-admin/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// SessionKey — ключ сессии в контексте.
const SessionKey Key = "session"

// WithSession возвращает контекст с сессией.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// SessionFrom возвращает сессию текущего запроса или nil.
func SessionFrom(ctx context.Context) *models.Session {
	s, _ := ctx.Value(SessionKey).(*models.Session)
	return s
}

// SessionGetter читает сессию по id.
type SessionGetter interface {
	Get(ctx context.Context, id string) (*models.Session, error)
}

// SessionLoader читает cookie cookieName и, если сессия действительна,
// кладёт её в контекст. Запрос без сессии проходит дальше анонимным.
func SessionLoader(sessions SessionGetter, cookieName string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SessionLoader"

			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			s, err := sessions.Get(r.Context(), c.Value)
			if err != nil {
				if !errors.Is(err, models.ErrSessionNotFound) {
					log.With(
						slog.String("op", op),
						slog.String("request_id", middleware.GetReqID(r.Context())),
					).Error("failed to load session", sl.Err(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// Cookies выставляет и удаляет cookie сессии.
type Cookies struct {
	Name   string
	Secure bool
}

// Set выставляет cookie сессии s.
func (c Cookies) Set(w http.ResponseWriter, s *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear удаляет cookie сессии.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClientMeta возвращает адрес и user agent клиента. Адрес берётся из
// RemoteAddr, который middleware.RealIP уже заменил реальным.
func ClientMeta(r *http.Request) *models.ClientMeta {
	return &models.ClientMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
}
