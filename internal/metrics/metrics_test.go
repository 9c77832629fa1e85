package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(registrations.WithLabelValues("bootstrap"))
	ObserveRegistration("bootstrap")
	assert.Equal(t, before+1, testutil.ToFloat64(registrations.WithLabelValues("bootstrap")))

	before = testutil.ToFloat64(logins.WithLabelValues("oidc", "denied"))
	ObserveLogin("oidc", "denied")
	assert.Equal(t, before+1, testutil.ToFloat64(logins.WithLabelValues("oidc", "denied")))

	before = testutil.ToFloat64(auditWriteFailures)
	ObserveAuditWriteFailure()
	assert.Equal(t, before+1, testutil.ToFloat64(auditWriteFailures))
}

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Put("/api/admin/users/{id}/role", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/admin/users/42/role", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	obs, ok := httpRequestDuration.WithLabelValues(http.MethodPut, "/api/admin/users/{id}/role", "418").(prometheus.Collector)
	require.True(t, ok)
	assert.Equal(t, 1, testutil.CollectAndCount(obs))
}
