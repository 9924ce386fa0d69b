package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/telehealth-storefront/internal/cache"
	"github.com/magabrotheeeer/telehealth-storefront/internal/cms"
	"github.com/magabrotheeeer/telehealth-storefront/internal/completion"
	"github.com/magabrotheeeer/telehealth-storefront/internal/config"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/handlers/health"
	"github.com/magabrotheeeer/telehealth-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/jwt"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/migrations"
	"github.com/magabrotheeeer/telehealth-storefront/internal/paymentprovider"
	"github.com/magabrotheeeer/telehealth-storefront/internal/recommendation"
	"github.com/magabrotheeeer/telehealth-storefront/internal/scheduling"
	appointmentservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/appointment"
	catalogservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/catalog"
	couponservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/coupon"
	pricesyncservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/pricesync"
	recommendationservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/recommendation"
	subscriptionservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/subscription"
	"github.com/magabrotheeeer/telehealth-storefront/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-сервер витрины вместе с его соединениями.
type App struct {
	server  *http.Server
	limiter *middlewarectx.RateLimiter
	logger  *slog.Logger
	db      *storage.Storage
	cache   *cache.Cache
	conn    *amqp.Connection
	ch      *amqp.Channel
}

// New подключает хранилища и брокер, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	engine, err := recommendation.NewEngine(recommendation.DefaultCategories())
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, err
	}

	provider := paymentprovider.NewClient(cfg.PaymentProvider)
	publisher := rabbitmq.NewNotificationPublisher(ch)

	catalog := catalogservice.New(cms.NewClient(cfg.CMS), cacheRedis, cfg.CacheTTL, cfg.PaymentProvider.Currency, logger)
	coupons := couponservice.New(db, logger)
	prices := pricesyncservice.New(db, provider, catalog, logger)
	subscriptions := subscriptionservice.New(subscriptionservice.Deps{
		Repo:          db,
		Catalog:       catalog,
		Coupons:       coupons,
		Prices:        prices,
		Provider:      provider,
		Publisher:     publisher,
		DefaultAccess: cfg.AppointmentAccess.DefaultDuration,
	}, logger)
	appointments := appointmentservice.New(db, subscriptions, scheduling.NewClient(cfg.Scheduling), publisher, logger)
	recommendations := recommendationservice.New(engine, catalog, completion.NewClient(cfg.Completion), logger)

	limiter := middlewarectx.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Catalog:         catalog,
		Coupons:         coupons,
		Recommendations: recommendations,
		Subscriptions:   subscriptions,
		Appointments:    appointments,
		Prices:          prices,
		Health: map[string]health.Pinger{
			"postgres": db,
			"redis":    cacheRedis,
		},
		Tokens:        jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Limiter:       limiter,
		WebhookSecret: cfg.PaymentProvider.WebhookSecret,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:  srv,
		limiter: limiter,
		logger:  logger,
		db:      db,
		cache:   cacheRedis,
		conn:    conn,
		ch:      ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене ctx.
func (a *App) Run(ctx context.Context) error {
	go a.limiter.RunSweeper(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
