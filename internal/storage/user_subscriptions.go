package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

const userSubscriptionColumns = `id, user_uid, email, plan_id, variant_id, provider_subscription_id,
	status, amount, currency, coupon_code, current_period_end, access_started_at,
	access_duration_seconds, access_expired, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserSubscription(row rowScanner) (*models.UserSubscription, error) {
	var (
		sub         models.UserSubscription
		providerID  sql.NullString
		startedAt   sql.NullTime
		durationSec int64
	)
	err := row.Scan(&sub.ID, &sub.UserUID, &sub.Email, &sub.PlanID, &sub.VariantID, &providerID,
		&sub.Status, &sub.Amount, &sub.Currency, &sub.CouponCode, &sub.CurrentPeriodEnd, &startedAt,
		&durationSec, &sub.AccessExpired, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	sub.ProviderSubscriptionID = providerID.String
	if startedAt.Valid {
		sub.AccessStartedAt = &startedAt.Time
	}
	sub.AccessDuration = time.Duration(durationSec) * time.Second
	return &sub, nil
}

// CreateUserSubscription сохраняет подписку пользователя.
func (s *Storage) CreateUserSubscription(ctx context.Context, sub models.UserSubscription) error {
	const op = "storage.CreateUserSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO user_subscriptions (id, user_uid, email, plan_id, variant_id,
				provider_subscription_id, status, amount, currency, coupon_code, current_period_end,
				access_started_at, access_duration_seconds, access_expired, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := s.DB.ExecContext(ctx, query,
		sub.ID, sub.UserUID, sub.Email, sub.PlanID, sub.VariantID,
		nullString(sub.ProviderSubscriptionID), sub.Status, sub.Amount, sub.Currency, sub.CouponCode,
		sub.CurrentPeriodEnd, sub.AccessStartedAt, int64(sub.AccessDuration/time.Second),
		sub.AccessExpired, sub.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUserSubscription возвращает подписку по ID.
func (s *Storage) GetUserSubscription(ctx context.Context, id string) (*models.UserSubscription, error) {
	const op = "storage.GetUserSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userSubscriptionColumns+` FROM user_subscriptions WHERE id = $1`, id)
	sub, err := scanUserSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFoundIfNoRows(err))
	}
	return sub, nil
}

// GetUserSubscriptionByProviderID ищет подписку по ID подписки у платёжного провайдера.
func (s *Storage) GetUserSubscriptionByProviderID(ctx context.Context, providerID string) (*models.UserSubscription, error) {
	const op = "storage.GetUserSubscriptionByProviderID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx,
		`SELECT `+userSubscriptionColumns+` FROM user_subscriptions WHERE provider_subscription_id = $1`,
		providerID)
	sub, err := scanUserSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFoundIfNoRows(err))
	}
	return sub, nil
}

// ListUserSubscriptions возвращает подписки пользователя с пагинацией, новые первыми.
func (s *Storage) ListUserSubscriptions(ctx context.Context, userUID string, limit, offset int) ([]*models.UserSubscription, error) {
	const op = "storage.ListUserSubscriptions"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userSubscriptionColumns + ` FROM user_subscriptions
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.UserSubscription
	for rows.Next() {
		sub, err := scanUserSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateUserSubscriptionStatus меняет статус подписки. Если periodEnd не nil,
// заодно переносит конец оплаченного периода.
func (s *Storage) UpdateUserSubscriptionStatus(ctx context.Context, id, status string, periodEnd *time.Time) error {
	const op = "storage.UpdateUserSubscriptionStatus"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE user_subscriptions
			  SET status = $2, current_period_end = COALESCE($3, current_period_end)
			  WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id, status, periodEnd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return affectedOrNotFound(op, result)
}

// StartAccess фиксирует момент первого входа в сессию. Повторный вызов
// не перезаписывает уже сохранённое время; started сообщает, было ли оно записано сейчас.
func (s *Storage) StartAccess(ctx context.Context, id string, at time.Time) (started bool, err error) {
	const op = "storage.StartAccess"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `UPDATE user_subscriptions SET access_started_at = $2
			  WHERE id = $1 AND access_started_at IS NULL AND access_expired = FALSE`
	result, err := s.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// MarkAccessExpired выставляет флаг истёкшего доступа. Флаг не снимается.
func (s *Storage) MarkAccessExpired(ctx context.Context, id string) error {
	const op = "storage.MarkAccessExpired"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	result, err := s.DB.ExecContext(ctx,
		`UPDATE user_subscriptions SET access_expired = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return affectedOrNotFound(op, result)
}

// ExpireLapsedAccess помечает истёкшими все окна доступа, закончившиеся к моменту now.
func (s *Storage) ExpireLapsedAccess(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.ExpireLapsedAccess"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `UPDATE user_subscriptions SET access_expired = TRUE
			  WHERE access_expired = FALSE
			    AND access_started_at IS NOT NULL
			    AND access_started_at + access_duration_seconds * INTERVAL '1 second' < $1`
	result, err := s.DB.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected, nil
}

func affectedOrNotFound(op string, result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ApplyPaymentEvent в одной транзакции запоминает событие провайдера и меняет статус подписки.
// Если событие с таким ключом уже обработано, подписка не меняется и applied == false.
func (s *Storage) ApplyPaymentEvent(ctx context.Context, eventKey, id, status string, periodEnd *time.Time) (applied bool, err error) {
	const op = "storage.ApplyPaymentEvent"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO payment_events (event_key, subscription_id) VALUES ($1, $2)
		 ON CONFLICT (event_key) DO NOTHING`, eventKey, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if inserted == 0 {
		err = tx.Rollback()
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return false, nil
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE user_subscriptions
		 SET status = $2, current_period_end = COALESCE($3, current_period_end)
		 WHERE id = $1`, id, status, periodEnd)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = affectedOrNotFound(op, result); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}
