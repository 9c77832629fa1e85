package middlewarectx

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jam-admin/internal/http/response"
	"github.com/magabrotheeeer/jam-admin/internal/models"
)

// DevBypassSession сессия, которую подставляет режим UnsafeDevAuthBypass.
var DevBypassSession = models.Session{
	UserID:   0,
	Username: "dev-bypass",
	Role:     models.RoleSuperAdmin,
}

// Authorize решает, достаточно ли сессии s для роли required.
// nil-сессия — models.ErrUnauthenticated, низкая роль — models.ErrForbidden.
func Authorize(s *models.Session, required models.Role) error {
	if s == nil {
		return models.ErrUnauthenticated
	}
	if !s.Role.AtLeast(required) {
		return fmt.Errorf("%w: %s required", models.ErrForbidden, required)
	}
	return nil
}

// Guard проверяет роль сессии.
type Guard struct {
	unsafeDevBypass bool
	log             *slog.Logger
}

// NewGuard создаёт Guard. unsafeDevBypass подменяет любую проверку сессией
// super_admin и допустим только вне production.
func NewGuard(unsafeDevBypass bool, log *slog.Logger) *Guard {
	if unsafeDevBypass {
		log.Warn("UNSAFE_DEV_AUTH_BYPASS is enabled: every privileged request runs as super_admin")
	}
	return &Guard{unsafeDevBypass: unsafeDevBypass, log: log}
}

// RequireAdmin пропускает admin и super_admin.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return g.require(models.RoleAdmin, next)
}

// RequireSuperAdmin пропускает только super_admin.
func (g *Guard) RequireSuperAdmin(next http.Handler) http.Handler {
	return g.require(models.RoleSuperAdmin, next)
}

func (g *Guard) require(required models.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.unsafeDevBypass {
			s := DevBypassSession
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), &s)))
			return
		}

		const op = "middlewarectx.Guard"
		s := SessionFrom(r.Context())
		if err := Authorize(s, required); err != nil {
			status, resp := response.FromError(err)
			g.log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			).Info("access rejected", slog.String("path", r.URL.Path), slog.String("required", string(required)), slog.Int("status", status))
			render.Status(r, status)
			render.JSON(w, r, resp)
			return
		}
		next.ServeHTTP(w, r)
	})
}
