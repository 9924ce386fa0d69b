// Package appointment бронирует телемедицинские приёмы, пускает пациента в сессию
// и ведёт статус осмотра.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/scheduling"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/subscription"
	"github.com/magabrotheeeer/telehealth-storefront/internal/storage"
)

var (
	ErrNotFound              = errors.New("appointment not found")
	ErrForbidden             = errors.New("appointment belongs to another user")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrSubscriptionInactive  = errors.New("subscription is not active")
	ErrAccessExpired         = errors.New("appointment access has expired")
	ErrStartInPast           = errors.New("start time must be in the future")
	ErrSchedulingUnavailable = errors.New("scheduling service unavailable")
	ErrInvalidTransition     = errors.New("invalid exam status transition")
)

// transitions допустимые переходы статуса осмотра.
var transitions = map[string][]string{
	models.ExamPending:    {models.ExamInProgress, models.ExamCanceled},
	models.ExamInProgress: {models.ExamCompleted, models.ExamCanceled},
}

// Repository хранилище записей на приём.
type Repository interface {
	CreateAppointment(ctx context.Context, a models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	UpdateExamStatus(ctx context.Context, id, from, to string) error
	DueReminders(ctx context.Context, from, to time.Time, limit int) ([]*models.Appointment, error)
	MarkReminded(ctx context.Context, id string) error
}

// Subscriptions операции подписок, нужные для записи и входа в сессию.
type Subscriptions interface {
	Get(ctx context.Context, user models.User, id string) (*models.UserSubscription, error)
	ConsumeAccess(ctx context.Context, user models.User, id string) (int64, error)
}

// Scheduler внешний сервис бронирования.
type Scheduler interface {
	CreateBooking(ctx context.Context, req scheduling.BookingRequest) (*scheduling.Booking, error)
}

// Publisher отправляет уведомления.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// Service бизнес-логика записей на приём.
type Service struct {
	repo          Repository
	subscriptions Subscriptions
	scheduler     Scheduler
	publisher     Publisher
	now           func() time.Time
	log           *slog.Logger
}

// New создаёт сервис записей.
func New(repo Repository, subs Subscriptions, scheduler Scheduler, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		subscriptions: subs,
		scheduler:     scheduler,
		publisher:     publisher,
		now:           func() time.Time { return time.Now().UTC() },
		log:           log,
	}
}

// Book записывает пациента на приём по активной подписке.
func (s *Service) Book(ctx context.Context, user models.User, req models.DummyAppointment) (*models.Appointment, error) {
	const op = "services.appointment.Book"
	log := s.log.With(sl.Op(op), slog.String("user_uid", user.UID))

	sub, err := s.subscriptions.Get(ctx, user, req.SubscriptionID)
	if err != nil {
		return nil, mapSubscriptionErr(op, err)
	}
	if sub.UserUID != user.UID {
		return nil, ErrForbidden
	}
	if sub.Status != models.SubscriptionActive {
		return nil, ErrSubscriptionInactive
	}
	if sub.AccessExpired {
		return nil, ErrAccessExpired
	}
	if !req.StartTime.After(s.now()) {
		return nil, ErrStartInPast
	}

	id := uuid.NewString()
	booking, err := s.scheduler.CreateBooking(ctx, scheduling.BookingRequest{
		Start: req.StartTime.UTC(),
		Attendee: scheduling.Attendee{
			Name:     user.Username,
			Email:    user.Email,
			TimeZone: req.TimeZone,
		},
		Metadata: map[string]string{
			"appointment_id":  id,
			"subscription_id": sub.ID,
			"treatment":       req.Treatment,
		},
	})
	if err != nil {
		log.Error("failed to create booking", sl.Err(err))
		return nil, fmt.Errorf("%w: %w", ErrSchedulingUnavailable, err)
	}

	a := models.Appointment{
		ID:                id,
		UserUID:           user.UID,
		Email:             user.Email,
		SubscriptionID:    sub.ID,
		Treatment:         req.Treatment,
		ScheduledAt:       req.StartTime.UTC(),
		ExternalBookingID: booking.UID,
		MeetingURL:        booking.MeetingURL,
		ExamStatus:        models.ExamPending,
		CreatedAt:         s.now(),
	}
	if !booking.Start.IsZero() {
		a.ScheduledAt = booking.Start.UTC()
	}
	if err := s.repo.CreateAppointment(ctx, a); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.notify(ctx, log, models.Notification{
		Type:     models.NotificationAppointmentBooked,
		Email:    user.Email,
		Username: user.Username,
		Data: map[string]string{
			"treatment":    a.Treatment,
			"scheduled_at": a.ScheduledAt.Format(time.RFC3339),
		},
	})

	log.Info("appointment booked", slog.String("appointment_id", id), slog.String("booking_uid", booking.UID))
	return &a, nil
}

// Get возвращает запись владельцу или сотруднику.
func (s *Service) Get(ctx context.Context, user models.User, id string) (*models.Appointment, error) {
	const op = "services.appointment.Get"

	a, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if a.UserUID != user.UID && !user.IsStaff() {
		return nil, ErrForbidden
	}
	return a, nil
}

// Join пускает пациента в сессию. Первый вход запускает отсчёт окна доступа подписки.
func (s *Service) Join(ctx context.Context, user models.User, id string) (*models.JoinInfo, error) {
	const op = "services.appointment.Join"

	a, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if a.UserUID != user.UID {
		return nil, ErrForbidden
	}
	if a.ExamStatus == models.ExamCanceled || a.ExamStatus == models.ExamCompleted {
		return nil, ErrInvalidTransition
	}

	remaining, err := s.subscriptions.ConsumeAccess(ctx, user, a.SubscriptionID)
	if err != nil {
		return nil, mapSubscriptionErr(op, err)
	}
	return &models.JoinInfo{
		AppointmentID:    a.ID,
		MeetingURL:       a.MeetingURL,
		RemainingSeconds: remaining,
	}, nil
}

// UpdateExamStatus меняет статус осмотра по таблице переходов.
func (s *Service) UpdateExamStatus(ctx context.Context, user models.User, id, to string) (*models.Appointment, error) {
	const op = "services.appointment.UpdateExamStatus"

	a, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if !user.IsStaff() {
		return nil, ErrForbidden
	}
	if !allowed(a.ExamStatus, to) {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.UpdateExamStatus(ctx, id, a.ExamStatus, to); err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			return nil, ErrInvalidTransition
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("exam status updated", sl.Op(op), slog.String("appointment_id", id),
		slog.String("from", a.ExamStatus), slog.String("to", to), slog.String("by", user.UID))
	a.ExamStatus = to
	return a, nil
}

// SendReminders публикует напоминания о приёмах в ближайшие lookahead и помечает их.
// Возвращает число отправленных напоминаний.
func (s *Service) SendReminders(ctx context.Context, lookahead time.Duration, limit int) (int, error) {
	const op = "services.appointment.SendReminders"
	log := s.log.With(sl.Op(op))

	now := s.now()
	due, err := s.repo.DueReminders(ctx, now, now.Add(lookahead), limit)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	sent := 0
	for _, a := range due {
		if err := ctx.Err(); err != nil {
			return sent, fmt.Errorf("%s: %w", op, err)
		}
		err := s.publisher.Publish(ctx, models.Notification{
			Type:  models.NotificationAppointmentReminder,
			Email: a.Email,
			Data: map[string]string{
				"treatment":    a.Treatment,
				"scheduled_at": a.ScheduledAt.Format(time.RFC3339),
				"meeting_url":  a.MeetingURL,
			},
		})
		if err != nil {
			log.Warn("failed to publish reminder", slog.String("appointment_id", a.ID), sl.Err(err))
			continue
		}
		if err := s.repo.MarkReminded(ctx, a.ID); err != nil {
			log.Error("failed to mark reminder sent", slog.String("appointment_id", a.ID), sl.Err(err))
			continue
		}
		sent++
	}
	if sent > 0 {
		log.Info("appointment reminders sent", slog.Int("count", sent))
	}
	return sent, nil
}

func allowed(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func mapSubscriptionErr(op string, err error) error {
	switch {
	case errors.Is(err, subscription.ErrNotFound):
		return ErrSubscriptionNotFound
	case errors.Is(err, subscription.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, subscription.ErrSubscriptionInactive):
		return ErrSubscriptionInactive
	case errors.Is(err, subscription.ErrAccessExpired):
		return ErrAccessExpired
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) notify(ctx context.Context, log *slog.Logger, n models.Notification) {
	if s.publisher == nil || n.Email == "" {
		return
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		log.Warn("failed to publish notification", slog.String("type", n.Type), sl.Err(err))
	}
}
