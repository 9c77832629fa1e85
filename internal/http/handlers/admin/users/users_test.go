package users

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/jam-admin/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jam-admin/internal/lib/password"
	"github.com/magabrotheeeer/jam-admin/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ChangePassword(ctx context.Context, actor *models.Session, targetID int64, plain string, client *models.ClientMeta) error {
	return m.Called(ctx, actor, targetID, plain, client).Error(0)
}

func (m *ServiceMock) SetRole(ctx context.Context, actor *models.Session, targetID int64, role models.Role, client *models.ClientMeta) (*models.User, error) {
	args := m.Called(ctx, actor, targetID, role, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *ServiceMock) SetActive(ctx context.Context, actor *models.Session, targetID int64, active bool, client *models.ClientMeta) (*models.User, error) {
	args := m.Called(ctx, actor, targetID, active, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

var actor = &models.Session{UserID: 1, Username: "root", Role: models.RoleSuperAdmin}

func newRouter(svc Service) http.Handler {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middlewarectx.WithSession(r.Context(), actor)))
		})
	})
	r.Put("/users/{id}/password", h.Password)
	r.Put("/users/{id}/role", h.Role)
	r.Put("/users/{id}/active", h.Active)
	return r
}

func put(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString(body)))
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr, resp
}

func TestUsers_Password(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		svcErr     error
		callsSvc   bool
		wantStatus int
	}{
		{"ok", "/users/5/password", `{"password":"Correct-Horse-9"}`, nil, true, http.StatusOK},
		{"bad id", "/users/abc/password", `{"password":"x"}`, nil, false, http.StatusBadRequest},
		{"missing password", "/users/5/password", `{}`, nil, false, http.StatusBadRequest},
		{"weak", "/users/5/password", `{"password":"Correct-Horse-9"}`, &password.PolicyError{Reason: "too short"}, true, http.StatusBadRequest},
		{"forbidden", "/users/5/password", `{"password":"Correct-Horse-9"}`, fmt.Errorf("auth.ChangePassword: %w", models.ErrForbidden), true, http.StatusForbidden},
		{"not found", "/users/5/password", `{"password":"Correct-Horse-9"}`, models.ErrNotFound, true, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callsSvc {
				svc.On("ChangePassword", mock.Anything, actor, int64(5), "Correct-Horse-9", mock.Anything).Return(tt.svcErr).Once()
			}
			rr, _ := put(t, newRouter(svc), tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestUsers_Role(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("SetRole", mock.Anything, actor, int64(5), models.RoleAdmin, mock.Anything).
			Return(&models.User{ID: 5, Username: "ann", Role: models.RoleAdmin}, nil).Once()

		rr, resp := put(t, newRouter(svc), "/users/5/role", `{"role":"admin"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "admin", resp["data"].(map[string]any)["role"])
	})

	t.Run("unknown role rejected before service", func(t *testing.T) {
		svc := new(ServiceMock)
		rr, resp := put(t, newRouter(svc), "/users/5/role", `{"role":"root"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, resp["error"], "field Role must be one of")
		svc.AssertNotCalled(t, "SetRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("self change forbidden", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("SetRole", mock.Anything, actor, int64(1), models.RoleUser, mock.Anything).Return(nil, models.ErrForbidden).Once()
		rr, _ := put(t, newRouter(svc), "/users/1/role", `{"role":"user"}`)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestUsers_Active(t *testing.T) {
	t.Run("deactivate", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("SetActive", mock.Anything, actor, int64(5), false, mock.Anything).
			Return(&models.User{ID: 5, IsActive: false}, nil).Once()

		rr, resp := put(t, newRouter(svc), "/users/5/active", `{"active":false}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, false, resp["data"].(map[string]any)["is_active"])
	})

	t.Run("missing flag", func(t *testing.T) {
		svc := new(ServiceMock)
		rr, resp := put(t, newRouter(svc), "/users/5/active", `{}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "active must be a boolean", resp["error"])
	})

	t.Run("non boolean", func(t *testing.T) {
		svc := new(ServiceMock)
		rr, resp := put(t, newRouter(svc), "/users/5/active", `{"active":"no"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid request body", resp["error"])
	})
}
