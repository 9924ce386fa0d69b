// Package scheduler собирает бинарник фоновых задач: синхронизацию цен,
// закрытие истёкших окон доступа и напоминания о приёмах.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/telehealth-storefront/internal/cache"
	"github.com/magabrotheeeer/telehealth-storefront/internal/cms"
	"github.com/magabrotheeeer/telehealth-storefront/internal/config"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/paymentprovider"
	appointmentservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/appointment"
	catalogservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/catalog"
	pricesyncservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/pricesync"
	schedulerservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/scheduler"
	subscriptionservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/subscription"
	"github.com/magabrotheeeer/telehealth-storefront/internal/storage"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	db               *storage.Storage
	cache            *cache.Cache
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

func waitForDB(ctx context.Context, db *storage.Storage) error {
	for range 10 {
		if err := storage.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	a.conn = conn

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	a.ch = ch

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	a.db = db

	// Миграции применяет storefront, планировщик только ждёт готовых таблиц.
	if err := waitForDB(ctx, db); err != nil {
		a.close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}
	a.cache = cacheRedis

	publisher := rabbitmq.NewNotificationPublisher(ch)
	catalog := catalogservice.New(cms.NewClient(cfg.CMS), cacheRedis, cfg.CacheTTL, cfg.PaymentProvider.Currency, logger)
	prices := pricesyncservice.New(db, paymentprovider.NewClient(cfg.PaymentProvider), catalog, logger)
	subscriptions := subscriptionservice.New(subscriptionservice.Deps{
		Repo:          db,
		Publisher:     publisher,
		DefaultAccess: cfg.AppointmentAccess.DefaultDuration,
	}, logger)
	appointments := appointmentservice.New(db, subscriptions, nil, publisher, logger)

	schedulerService, err := schedulerservice.NewSchedulerService(cfg.Scheduler, prices, subscriptions, appointments, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.schedulerService = schedulerService

	return a, nil
}

// Run запускает cron и первичный прогон задач, блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.schedulerService.Run(gctx)
		return nil
	})
	// Первичная синхронизация, чтобы не ждать первого срабатывания расписания.
	g.Go(func() error {
		a.schedulerService.RunPriceSync(gctx)
		a.schedulerService.RunAccessSweep(gctx)
		return nil
	})

	a.logger.Info("scheduler started", slog.Int("jobs", a.schedulerService.Entries()))
	err := g.Wait()

	a.logger.Info("shutting down scheduler service")
	a.close()
	return err
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
