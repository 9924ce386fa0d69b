// Package sender превращает уведомления из очереди в письма и отправляет их по SMTP.
package sender

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/smtp"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

// ErrUnknownType для типа уведомления нет шаблона письма.
var ErrUnknownType = errors.New("unknown notification type")

// SenderService отправитель писем.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// Handle обработчик сообщения из очереди. Неразбираемое сообщение отбрасывается
// (rabbitmq.ErrDrop), остальные ошибки возвращают сообщение в очередь.
func (s *SenderService) Handle(body []byte) error {
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("failed to unmarshal notification", sl.Err(err))
		return fmt.Errorf("%w: %w", rabbitmq.ErrDrop, err)
	}
	if n.Email == "" {
		s.log.Error("notification without recipient", slog.String("type", n.Type))
		return fmt.Errorf("%w: empty email", rabbitmq.ErrDrop)
	}

	subject, text, err := Render(n)
	if err != nil {
		return err
	}
	return s.sendEmail([]string{n.Email}, subject, text)
}

// Render возвращает тему и текст письма для уведомления.
func Render(n models.Notification) (string, string, error) {
	name := n.Username
	if name == "" {
		name = "there"
	}

	switch n.Type {
	case models.NotificationSubscriptionCreated:
		return "Your subscription is almost ready",
			fmt.Sprintf("Hi %s,\n\nThanks for subscribing to %s (%s) for %s %s.\n"+
				"Your subscription becomes active as soon as the payment is confirmed.\n",
				name, n.Data["plan"], n.Data["variant"], n.Data["amount"], n.Data["currency"]), nil
	case models.NotificationAppointmentBooked:
		return "Your appointment is booked",
			fmt.Sprintf("Hi %s,\n\nYour %s consultation is booked for %s.\n"+
				"You can join it from your account a few minutes before the start.\n",
				name, treatment(n), when(n)), nil
	case models.NotificationAppointmentReminder:
		text := fmt.Sprintf("Hi %s,\n\nA reminder that your %s consultation starts at %s.\n", name, treatment(n), when(n))
		if url := n.Data["meeting_url"]; url != "" {
			text += "Join link: " + url + "\n"
		}
		return "Appointment reminder", text, nil
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnknownType, n.Type)
}

func treatment(n models.Notification) string {
	if t := n.Data["treatment"]; t != "" {
		return strings.ReplaceAll(t, "_", " ")
	}
	return "telehealth"
}

func when(n models.Notification) string {
	raw := n.Data["scheduled_at"]
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.From()
	msg := smtp.BuildMessage(from, to, subject, bodyText, time.Now())

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write(msg); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
