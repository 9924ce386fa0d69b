// Package sender собирает бинарник отправки писем: потребитель очереди
// уведомлений передаёт сообщения в SMTP.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/telehealth-storefront/internal/config"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/telehealth-storefront/internal/services/sender"
)

const consumerWorkers = 4

// App представляет приложение отправки писем.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New подключается к RabbitMQ и создаёт SMTP-транспорт.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	if err := ch.Qos(consumerWorkers, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderservice.NewSenderService(transport, logger),
		logger:        logger,
	}, nil
}

// Run потребляет очередь писем до отмены ctx. Канал и соединение закрываются после того,
// как все начатые отправки подтверждены. Закрытие доставки брокером завершает Run с ошибкой.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	a.logger.Info("email consumer started", slog.String("queue", rabbitmq.EmailQueue))
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.EmailQueue, consumerWorkers, a.logger, a.senderService.Handle)
	if err != nil {
		a.logger.Error("email consumer stopped", sl.Err(err))
		return err
	}
	a.logger.Info("Sender service shutting down gracefully")
	return nil
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
