package models

// Типы email-уведомлений.
const (
	NotificationSubscriptionCreated = "subscription.created"
	NotificationAppointmentBooked   = "appointment.booked"
	NotificationAppointmentReminder = "appointment.reminder"
)

// Notification сообщение для отправителя писем.
type Notification struct {
	Type     string            `json:"type"`
	Email    string            `json:"email"`
	Username string            `json:"username"`
	Data     map[string]string `json:"data,omitempty"`
}
