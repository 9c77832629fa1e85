package admin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/jam-admin/internal/config"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	RegisterRoutes(r, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), &Services{}, map[string]Pinger{"postgres": okPinger{}})
	return r
}

func testConfig() *config.Config {
	cfg := &config.Config{Env: config.EnvLocal}
	cfg.CookieName = "jam_admin_session"
	cfg.AuthKey = "0123456789abcdef0123456789abcdef"
	cfg.RPS = 100
	cfg.Burst = 100
	return cfg
}

func TestRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig())

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"me anonymous", http.MethodGet, "/api/auth/me", http.StatusUnauthorized},
		{"csrf token", http.MethodGet, "/api/auth/csrf-token", http.StatusOK},
		{"admin registration anonymous", http.MethodGet, "/api/admin/registration", http.StatusUnauthorized},
		{"mutation without csrf token", http.MethodPost, "/api/auth/login", http.StatusForbidden},
		{"admin mutation without csrf token", http.MethodPut, "/api/admin/registration", http.StatusForbidden},
		{"oidc disabled", http.MethodGet, "/auth/login", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
