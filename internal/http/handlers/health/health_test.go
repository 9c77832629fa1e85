package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("refused") })

	t.Run("all healthy", func(t *testing.T) {
		rr := httptest.NewRecorder()
		New(log, map[string]Pinger{"postgres": ok, "redis": ok}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"OK","data":{"postgres":"ok","redis":"ok"}}`, rr.Body.String())
	})

	t.Run("one down", func(t *testing.T) {
		rr := httptest.NewRecorder()
		New(log, map[string]Pinger{"postgres": ok, "redis": down}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"Error","error":"unhealthy","data":{"postgres":"ok","redis":"unavailable"}}`, rr.Body.String())
	})
}
