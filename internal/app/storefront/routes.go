// Package storefront собирает HTTP API витрины: каталог, купоны, рекомендации,
// подписки, записи на приём и административные операции.
package storefront

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/admin/catalogrefresh"
	adminpricesync "github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/admin/pricesync"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/appointment/book"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/appointment/examstatus"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/appointment/join"
	appointmentread "github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/appointment/read"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/catalog/plans"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/catalog/product"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/catalog/products"
	couponcreate "github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/coupon/create"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/coupon/validate"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/health"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/payment/webhook"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/recommendation/recommend"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/subscription/access"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/subscription/cancel"
	subscriptioncreate "github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/subscription/create"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/subscription/list"
	subscriptionread "github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/subscription/read"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/telehealth-storefront/internal/metrics"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	appointmentservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/appointment"
	catalogservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/catalog"
	couponservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/coupon"
	pricesyncservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/pricesync"
	recommendationservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/recommendation"
	subscriptionservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/subscription"
)

// Deps сервисы и настройки, которые нужны маршрутам.
type Deps struct {
	Catalog         *catalogservice.Service
	Coupons         *couponservice.Service
	Recommendations *recommendationservice.Service
	Subscriptions   *subscriptionservice.Service
	Appointments    *appointmentservice.Service
	Prices          *pricesyncservice.Service
	Health          map[string]health.Pinger
	Tokens          middlewarectx.TokenParser
	Limiter         *middlewarectx.RateLimiter
	WebhookSecret   string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
	)

	r.Get("/health", health.New(logger, d.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/products", products.New(logger, d.Catalog).ServeHTTP)
		r.Get("/products/{slug}", product.New(logger, d.Catalog).ServeHTTP)
		r.Get("/plans", plans.New(logger, d.Catalog).ServeHTTP)
		r.Post("/payments/webhook", webhook.New(logger, d.Subscriptions, d.WebhookSecret).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(d.Limiter.Middleware(logger))
			r.Post("/coupons/validate", validate.New(logger, d.Coupons).ServeHTTP)
			r.Post("/recommendations", recommend.New(logger, d.Recommendations).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))

			r.Post("/subscriptions", subscriptioncreate.New(logger, d.Subscriptions).ServeHTTP)
			r.Get("/subscriptions", list.New(logger, d.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/{id}", subscriptionread.New(logger, d.Subscriptions).ServeHTTP)
			r.Delete("/subscriptions/{id}", cancel.New(logger, d.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/{id}/access", access.New(logger, d.Subscriptions).ServeHTTP)

			r.Post("/appointments", book.New(logger, d.Appointments).ServeHTTP)
			r.Get("/appointments/{id}", appointmentread.New(logger, d.Appointments).ServeHTTP)
			r.Post("/appointments/{id}/join", join.New(logger, d.Appointments).ServeHTTP)

			r.With(middlewarectx.RequireRole(logger, models.RoleClinician, models.RoleAdmin)).
				Patch("/appointments/{id}/exam-status", examstatus.New(logger, d.Appointments).ServeHTTP)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))
				r.Post("/coupons", couponcreate.New(logger, d.Coupons).ServeHTTP)
				r.Post("/prices/sync", adminpricesync.New(logger, d.Prices).ServeHTTP)
				r.Post("/catalog/refresh", catalogrefresh.New(logger, d.Catalog).ServeHTTP)
			})
		})
	})
}
