package rabbitmq

// NotificationsExchange exchange для всех уведомлений.
const NotificationsExchange = "notifications"

// Очередь писем и её ключ маршрутизации.
const (
	EmailQueue      = "notification.email"
	EmailRoutingKey = "email"
)

// QueueConfig очередь и ключ, с которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые объявляют все бинарники.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: EmailQueue, RoutingKey: EmailRoutingKey},
	}
}
