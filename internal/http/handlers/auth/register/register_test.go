package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/jam-admin/internal/lib/password"
	"github.com/magabrotheeeer/jam-admin/internal/models"
	"github.com/magabrotheeeer/jam-admin/internal/services/bootstrap"
)

// Мок сервиса с методом Register
type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, req bootstrap.Request) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	valid := Request{Username: "root", Email: "root@example.com", Password: "Correct-Horse-9"}

	tests := []struct {
		name           string
		requestBody    any
		mockUser       *models.User
		mockErr        error
		callsService   bool
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "first user",
			requestBody:    valid,
			mockUser:       &models.User{ID: 1, Username: "root", Email: "root@example.com", Role: models.RoleSuperAdmin, IsActive: true, PasswordHash: "$argon2id$secret"},
			callsService:   true,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
		},
		{
			name:           "validation error - bad email",
			requestBody:    Request{Username: "root", Email: "nope", Password: "x"},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "field Email must be a valid email",
		},
		{
			name:           "registration closed",
			requestBody:    valid,
			mockErr:        fmt.Errorf("bootstrap.Register: %w", models.ErrRegistrationClosed),
			callsService:   true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      models.ErrRegistrationClosed.Error(),
		},
		{
			name:           "weak password",
			requestBody:    valid,
			mockErr:        fmt.Errorf("bootstrap.Register: %w", &password.PolicyError{Reason: "must be at least 8 characters long"}),
			callsService:   true,
			wantStatusCode: http.StatusBadRequest,
			wantError:      "weak password: must be at least 8 characters long",
		},
		{
			name:           "conflict",
			requestBody:    valid,
			mockErr:        fmt.Errorf("bootstrap.Register: %w", models.ErrConflict),
			callsService:   true,
			wantStatusCode: http.StatusConflict,
			wantError:      models.ErrConflict.Error(),
		},
		{
			name:           "storage failure",
			requestBody:    valid,
			mockErr:        errors.New("connection reset"),
			callsService:   true,
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			handler := New(newNoopLogger(), svc)
			if tt.callsService {
				svc.On("Register", mock.Anything, mock.MatchedBy(func(req bootstrap.Request) bool {
					return req.Username == valid.Username && req.Client != nil
				})).Return(tt.mockUser, tt.mockErr).Once()
			}

			var body []byte
			switch v := tt.requestBody.(type) {
			case string:
				body = []byte(v)
			default:
				var err error
				body, err = json.Marshal(v)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatusCode, rr.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			if tt.wantError != "" {
				assert.Equal(t, "Error", resp["status"])
				assert.Contains(t, resp["error"], tt.wantError)
			} else {
				assert.Equal(t, "OK", resp["status"])
				data := resp["data"].(map[string]any)
				assert.Equal(t, "super_admin", data["role"])
				assert.NotContains(t, rr.Body.String(), "argon2id")
			}

			svc.AssertExpectations(t)
		})
	}
}
