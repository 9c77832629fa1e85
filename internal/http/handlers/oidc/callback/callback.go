// Package callback завершает вход через внешнего провайдера:
// GET /auth/callback. Ошибки показываются HTML-страницей, так как
// сюда браузер приходит редиректом.
package callback

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jam-admin/internal/http/handlers/oidc/login"
	"github.com/magabrotheeeer/jam-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
	"github.com/magabrotheeeer/jam-admin/internal/models"
	"github.com/magabrotheeeer/jam-admin/internal/services/oidc"
)

// ErrProviderRejected провайдер вернул error вместо кода.
var ErrProviderRejected = errors.New("provider rejected the login")

// Bridge завершает вход.
type Bridge interface {
	Complete(ctx context.Context, cb oidc.Callback) (*models.User, *models.Session, error)
}

// Options настройки Handler.
type Options struct {
	SuccessRedirect string
	Verbose         bool // показывать причину сбоя на странице ошибки
}

// Handler обрабатывает обратный вызов провайдера.
type Handler struct {
	log     *slog.Logger
	bridge  Bridge
	cookies middlewarectx.Cookies
	opts    Options
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, bridge Bridge, cookies middlewarectx.Cookies, opts Options) *Handler {
	if opts.SuccessRedirect == "" {
		opts.SuccessRedirect = "/"
	}
	return &Handler{log: log, bridge: bridge, cookies: cookies, opts: opts}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.oidc.callback"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	login.ClearCookie(w, h.cookies.Secure)

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		err := &oidc.ProviderError{
			Stage: oidc.StageExchange,
			Err:   fmt.Errorf("%w: %s %s", ErrProviderRejected, e, q.Get("error_description")),
		}
		h.fail(w, r, log, err)
		return
	}

	var loginID string
	if c, err := r.Cookie(login.CookieName); err == nil {
		loginID = c.Value
	}

	user, sess, err := h.bridge.Complete(r.Context(), oidc.Callback{
		LoginID: loginID,
		State:   q.Get("state"),
		Code:    q.Get("code"),
		Client:  middlewarectx.ClientMeta(r),
	})
	if err != nil {
		h.fail(w, r, log, err)
		return
	}

	h.cookies.Set(w, sess)
	log.Info("federated login completed", slog.String("username", user.Username), slog.String("role", string(user.Role)))
	http.Redirect(w, r, h.opts.SuccessRedirect, http.StatusFound)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, title := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error("federated login failed", sl.Err(err), slog.Int("status", status))
	} else {
		log.Warn("federated login rejected", sl.Err(err), slog.Int("status", status))
	}

	detail := ""
	if h.opts.Verbose {
		detail = "<pre>" + html.EscapeString(err.Error()) + "</pre>"
	}
	render.Status(r, status)
	render.HTML(w, r, fmt.Sprintf(
		"<!doctype html><html><head><title>Sign-in failed</title></head>"+
			"<body><h1>%s</h1>%s<p><a href=\"/auth/login\">Try again</a></p></body></html>",
		html.EscapeString(title), detail,
	))
}

func classify(err error) (int, string) {
	var pe *oidc.ProviderError
	switch {
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden, "Your account does not have access to the admin panel."
	case errors.Is(err, models.ErrAccountDisabled):
		return http.StatusForbidden, "Your account is disabled."
	case errors.As(err, &pe) && pe.Stage == oidc.StageState:
		return http.StatusBadRequest, "The sign-in link expired or is invalid. Please start again."
	case errors.As(err, &pe) && pe.Stage == oidc.StageSession:
		return http.StatusInternalServerError, "Sign-in could not be completed."
	case errors.As(err, &pe):
		return http.StatusBadGateway, "The identity provider could not complete the sign-in."
	}
	return http.StatusInternalServerError, "Sign-in could not be completed."
}
