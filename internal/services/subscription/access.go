package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/accesswindow"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/metrics"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/storage"
)

// AccessStatus сообщает состояние окна доступа, не начиная отсчёт.
// Если окно истекло к моменту проверки, флаг истечения сохраняется.
func (s *Service) AccessStatus(ctx context.Context, user models.User, id string) (*models.AccessStatus, error) {
	const op = "services.subscription.AccessStatus"

	sub, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}

	res := accesswindow.Check(s.now(), sub.AccessStartedAt, sub.AccessDuration, sub.AccessExpired)
	if res.ExpiredNow {
		if err := s.repo.MarkAccessExpired(ctx, sub.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	metrics.AccessChecks.WithLabelValues(accessLabel(res)).Inc()

	return &models.AccessStatus{
		SubscriptionID:   sub.ID,
		Allowed:          res.Allowed && sub.Status == models.SubscriptionActive,
		Expired:          res.Expired,
		Started:          sub.AccessStartedAt != nil,
		StartedAt:        sub.AccessStartedAt,
		RemainingSeconds: res.RemainingSeconds,
	}, nil
}

// ConsumeAccess пропускает пользователя в сессию. Первый вход запускает отсчёт окна,
// последующие проверяют остаток. Возвращает оставшееся время в секундах.
func (s *Service) ConsumeAccess(ctx context.Context, user models.User, id string) (int64, error) {
	const op = "services.subscription.ConsumeAccess"
	log := s.log.With(sl.Op(op), slog.String("subscription_id", id))

	sub, err := s.Get(ctx, user, id)
	if err != nil {
		return 0, err
	}
	if sub.Status != models.SubscriptionActive {
		return 0, ErrSubscriptionInactive
	}

	now := s.now()
	res := accesswindow.Check(now, sub.AccessStartedAt, sub.AccessDuration, sub.AccessExpired)
	metrics.AccessChecks.WithLabelValues(accessLabel(res)).Inc()

	switch {
	case res.ExpiredNow:
		if err := s.repo.MarkAccessExpired(ctx, sub.ID); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("access window closed")
		return 0, ErrAccessExpired
	case res.Expired:
		return 0, ErrAccessExpired
	case res.FirstAccess:
		started, err := s.repo.StartAccess(ctx, sub.ID, now)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if started {
			log.Info("access window started", slog.Int64("remaining_seconds", res.RemainingSeconds))
			return res.RemainingSeconds, nil
		}
		// окно открыл параллельный запрос, проверяем по сохранённой отметке
		fresh, err := s.repo.GetUserSubscription(ctx, sub.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return 0, ErrNotFound
			}
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		again := accesswindow.Check(now, fresh.AccessStartedAt, fresh.AccessDuration, fresh.AccessExpired)
		if !again.Allowed {
			return 0, ErrAccessExpired
		}
		return again.RemainingSeconds, nil
	default:
		return res.RemainingSeconds, nil
	}
}

// SweepAccess закрывает все окна доступа, истёкшие к текущему моменту.
func (s *Service) SweepAccess(ctx context.Context) (int64, error) {
	const op = "services.subscription.SweepAccess"

	n, err := s.repo.ExpireLapsedAccess(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if n > 0 {
		s.log.Info("lapsed access windows expired", sl.Op(op), slog.Int64("count", n))
	}
	return n, nil
}

func accessLabel(res accesswindow.Result) string {
	switch {
	case res.ExpiredNow:
		return "expired_now"
	case res.Expired:
		return "expired"
	case res.FirstAccess:
		return "first_access"
	default:
		return "allowed"
	}
}
