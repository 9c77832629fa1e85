// Package metrics содержит счётчики Prometheus для событий аутентификации
// и middleware для HTTP-запросов.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jam_admin_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_admin_registrations_total",
		Help: "Self-registration attempts by outcome",
	}, []string{"outcome"})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jam_admin_logins_total",
		Help: "Login attempts by method and outcome",
	}, []string{"method", "outcome"})

	passwordRehashes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jam_admin_password_rehashes_total",
		Help: "Stored password digests upgraded to the current algorithm",
	})

	auditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jam_admin_audit_write_failures_total",
		Help: "Audit entries that could not be persisted",
	})
)

// ObserveRegistration учитывает попытку регистрации.
func ObserveRegistration(outcome string) {
	registrations.WithLabelValues(outcome).Inc()
}

// ObserveLogin учитывает попытку входа. method — "local" или "oidc".
func ObserveLogin(method, outcome string) {
	logins.WithLabelValues(method, outcome).Inc()
}

// ObservePasswordRehash учитывает перехеширование пароля.
func ObservePasswordRehash() {
	passwordRehashes.Inc()
}

// ObserveAuditWriteFailure учитывает несохранённую запись аудита.
func ObserveAuditWriteFailure() {
	auditWriteFailures.Inc()
}

// HTTPMetricsMiddleware измеряет длительность запросов. Метка route — шаблон
// маршрута chi, а не сырой путь, чтобы не раздувать число рядов.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		httpRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(ww.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
