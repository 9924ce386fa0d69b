package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

// ErrConflict запись изменилась между чтением и обновлением.
var ErrConflict = errors.New("record changed concurrently")

const appointmentColumns = `id, user_uid, email, subscription_id, treatment, scheduled_at,
	external_booking_id, meeting_url, exam_status, reminder_sent, created_at`

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var a models.Appointment
	err := row.Scan(&a.ID, &a.UserUID, &a.Email, &a.SubscriptionID, &a.Treatment, &a.ScheduledAt,
		&a.ExternalBookingID, &a.MeetingURL, &a.ExamStatus, &a.ReminderSent, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAppointment сохраняет запись на приём.
func (s *Storage) CreateAppointment(ctx context.Context, a models.Appointment) error {
	const op = "storage.CreateAppointment"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO appointments (id, user_uid, email, subscription_id, treatment, scheduled_at,
				external_booking_id, meeting_url, exam_status, reminder_sent, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.DB.ExecContext(ctx, query,
		a.ID, a.UserUID, a.Email, a.SubscriptionID, a.Treatment, a.ScheduledAt,
		a.ExternalBookingID, a.MeetingURL, a.ExamStatus, a.ReminderSent, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetAppointment возвращает запись на приём по ID.
func (s *Storage) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	const op = "storage.GetAppointment"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFoundIfNoRows(err))
	}
	return a, nil
}

// UpdateExamStatus переводит статус осмотра из from в to. Если текущий статус
// уже не from, возвращает ErrConflict.
func (s *Storage) UpdateExamStatus(ctx context.Context, id, from, to string) error {
	const op = "storage.UpdateExamStatus"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	result, err := s.DB.ExecContext(ctx,
		`UPDATE appointments SET exam_status = $3 WHERE id = $1 AND exam_status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return nil
}

// DueReminders возвращает ожидающие приёмы в интервале [from, to), по которым
// ещё не отправлено напоминание.
func (s *Storage) DueReminders(ctx context.Context, from, to time.Time, limit int) ([]*models.Appointment, error) {
	const op = "storage.DueReminders"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments
			  WHERE reminder_sent = FALSE
			    AND exam_status = 'pending'
			    AND scheduled_at >= $1 AND scheduled_at < $2
			  ORDER BY scheduled_at
			  LIMIT $3`
	rows, err := s.DB.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkReminded отмечает, что напоминание о приёме отправлено.
func (s *Storage) MarkReminded(ctx context.Context, id string) error {
	const op = "storage.MarkReminded"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	result, err := s.DB.ExecContext(ctx, `UPDATE appointments SET reminder_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return affectedOrNotFound(op, result)
}
