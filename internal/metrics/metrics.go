// Package metrics содержит prometheus-метрики витрины.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	CouponValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_coupon_validations_total",
		Help: "Coupon validations by result.",
	}, []string{"result"})

	Recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_recommendations_total",
		Help: "Recommendations by category and eligibility.",
	}, []string{"category", "eligible"})

	PriceSync = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_price_sync_variants_total",
		Help: "Price sync outcomes per plan variant.",
	}, []string{"outcome"})

	AccessChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_access_checks_total",
		Help: "Appointment access window checks by result.",
	}, []string{"result"})
)

// Middleware считает запросы и время их обработки по шаблону маршрута chi.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
