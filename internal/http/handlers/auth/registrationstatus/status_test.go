package registrationstatus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gateStub struct {
	open bool
	err  error
}

func (g gateStub) IsOpen(context.Context) (bool, error) { return g.open, g.err }

func TestRegistrationStatus(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		gate       gateStub
		wantStatus int
		wantBody   string
	}{
		{"open", gateStub{open: true}, http.StatusOK, `{"status":"OK","data":{"enabled":true}}`},
		{"closed", gateStub{open: false}, http.StatusOK, `{"status":"OK","data":{"enabled":false}}`},
		{"store error", gateStub{err: errors.New("db down")}, http.StatusInternalServerError, `{"status":"Error","error":"internal error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			New(log, tt.gate).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/registration-status", nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			var got, want map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			require.NoError(t, json.Unmarshal([]byte(tt.wantBody), &want))
			assert.Equal(t, want, got)
		})
	}
}
