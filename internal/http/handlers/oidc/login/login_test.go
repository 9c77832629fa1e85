package login

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bridgeStub struct {
	loginID, url string
	err          error
}

func (b bridgeStub) Begin(context.Context) (string, string, error) { return b.loginID, b.url, b.err }

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOIDCLogin_Redirects(t *testing.T) {
	h := New(newLogger(), bridgeStub{loginID: "lid-1", url: "https://idp.example.com/auth?state=s"}, 10*time.Minute, true)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://idp.example.com/auth?state=s", rr.Header().Get("Location"))
	cs := rr.Result().Cookies()
	require.Len(t, cs, 1)
	assert.Equal(t, CookieName, cs[0].Name)
	assert.Equal(t, "lid-1", cs[0].Value)
	assert.Equal(t, 600, cs[0].MaxAge)
	assert.True(t, cs[0].HttpOnly)
	assert.True(t, cs[0].Secure)
}

func TestOIDCLogin_BeginFails(t *testing.T) {
	h := New(newLogger(), bridgeStub{err: errors.New("redis down")}, time.Minute, false)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Result().Cookies())
}
