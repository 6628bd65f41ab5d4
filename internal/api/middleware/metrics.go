// metrics.go - Prometheus HTTP метрики filegate.
// Нормализация путей не даёт id файлов попасть в лейблы.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fg_http_requests_total",
			Help: "Общее количество HTTP-запросов к filegate",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fg_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к filegate в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath заменяет id файла в пути на {id}.
// /files/a1b2c3d4-... → /files/{id}
// /files/a1b2c3d4-.../zip-contents → /files/{id}/zip-contents
// Неизвестные пути сводятся к "other".
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics", "/files", "/files/", "/files/upload":
		return strings.TrimSuffix(path, "/")
	}

	rest, ok := strings.CutPrefix(path, "/files/")
	if !ok {
		return "other"
	}
	_, suffix, _ := strings.Cut(rest, "/")
	switch suffix {
	case "":
		return "/files/{id}"
	case "download", "zip-contents", "metadata":
		return "/files/{id}/" + suffix
	default:
		return "other"
	}
}
