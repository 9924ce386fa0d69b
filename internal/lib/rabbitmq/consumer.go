package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
)

var (
	// ErrDrop сообщает консьюмеру, что сообщение нельзя обработать повторно
	// и его нужно удалить из очереди без возврата.
	ErrDrop = errors.New("drop message")
	// ErrDeliveryClosed брокер закрыл канал доставки.
	ErrDeliveryClosed = errors.New("delivery channel closed by broker")
)

// ConsumerMessage потребляет очередь queueName до отмены ctx. Обработчики выполняются
// параллельно, не более workers одновременно. Ошибка обработчика возвращает сообщение
// в очередь, кроме ErrDrop.
//
// Возврат происходит только после завершения всех начатых обработчиков: nil при отмене ctx
// и ErrDeliveryClosed, если брокер закрыл канал доставки.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, workers int, log *slog.Logger, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := consume(ctx, delivery, workers, log, handler); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func consume(ctx context.Context, delivery <-chan amqp.Delivery, workers int, log *slog.Logger, handler func([]byte) error) error {
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-delivery:
			if !ok {
				return ErrDeliveryClosed
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				settle(&d, ctx.Err(), log)
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				handle(d, log, handler)
			}(d)
		}
	}
}

// acknowledger подмножество amqp.Delivery для подтверждения сообщения.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handle(d amqp.Delivery, log *slog.Logger, handler func([]byte) error) {
	settle(&d, handler(d.Body), log)
}

func settle(d acknowledger, err error, log *slog.Logger) {
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
	case errors.Is(err, ErrDrop):
		log.Warn("dropping message", sl.Err(err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	default:
		log.Error("failed to handle message, requeue", sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	}
}
