// Package coupon проверяет, применяет и создаёт купоны на скидку.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/telehealth-storefront/internal/metrics"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/storage"
)

var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponInactive      = errors.New("coupon is inactive")
	ErrCouponNotYetValid   = errors.New("coupon is not yet valid")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrCouponUsageLimit    = errors.New("coupon usage limit reached")
	ErrCouponNotApplicable = errors.New("coupon does not apply to this plan")
	ErrCouponMinimumNotMet = errors.New("order amount is below the coupon minimum")
	ErrCouponExists        = errors.New("coupon code already exists")
	ErrInvalidCoupon       = errors.New("invalid coupon")
	ErrInvalidAmount       = errors.New("invalid amount")
)

var hundred = decimal.NewFromInt(100)

// Repository хранилище купонов.
type Repository interface {
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	CreateCoupon(ctx context.Context, c models.Coupon) error
	RedeemCoupon(ctx context.Context, code string) error
}

// Service бизнес-логика купонов.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создаёт сервис купонов.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

const (
	minCodeLen = 3
	maxCodeLen = 64
)

// normalizePlanIDs убирает пустые и повторяющиеся ID. Запятая в ID недопустима:
// список хранится строкой через запятую.
func normalizePlanIDs(ids []string) ([]string, error) {
	var out []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if strings.Contains(id, ",") {
			return nil, fmt.Errorf("%w: plan id %q must not contain a comma", ErrInvalidCoupon, id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// Normalize приводит код купона к каноническому виду.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate проверяет купон для тарифа planID и суммы amount на момент now
// и возвращает расчёт скидки.
func (s *Service) Validate(ctx context.Context, code, planID string, amount decimal.Decimal, now time.Time) (*models.CouponQuote, error) {
	const op = "services.coupon.Validate"

	if amount.IsNegative() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	c, err := s.repo.GetCouponByCode(ctx, Normalize(code))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.CouponValidations.WithLabelValues("not_found").Inc()
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	quote, err := Quote(c, planID, amount, now)
	if err != nil {
		metrics.CouponValidations.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	metrics.CouponValidations.WithLabelValues("ok").Inc()
	return quote, nil
}

// Quote проверяет ограничения купона и считает скидку. Процентная скидка
// округляется до центов половиной вверх; любая скидка не больше суммы заказа.
func Quote(c *models.Coupon, planID string, amount decimal.Decimal, now time.Time) (*models.CouponQuote, error) {
	switch {
	case !c.Active:
		return nil, ErrCouponInactive
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return nil, ErrCouponNotYetValid
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return nil, ErrCouponExpired
	case c.MaxUses != nil && c.UsageCount >= *c.MaxUses:
		return nil, ErrCouponUsageLimit
	case len(c.PlanIDs) > 0 && !slices.Contains(c.PlanIDs, planID):
		return nil, ErrCouponNotApplicable
	case amount.LessThan(c.MinOrderAmount):
		return nil, ErrCouponMinimumNotMet
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountPercentage:
		discount = amount.Mul(c.DiscountValue).Div(hundred).Round(2)
	case models.DiscountFixed:
		discount = c.DiscountValue
	default:
		return nil, fmt.Errorf("%w: unknown discount type %q", ErrInvalidCoupon, c.DiscountType)
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}

	return &models.CouponQuote{
		Code:           c.Code,
		DiscountType:   c.DiscountType,
		OriginalAmount: amount,
		DiscountAmount: discount,
		FinalAmount:    amount.Sub(discount),
	}, nil
}

// Redeem засчитывает одно применение купона.
func (s *Service) Redeem(ctx context.Context, code string) error {
	const op = "services.coupon.Redeem"

	err := s.repo.RedeemCoupon(ctx, Normalize(code))
	if err != nil {
		if errors.Is(err, storage.ErrLimitReached) {
			return ErrCouponUsageLimit
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Create проверяет и сохраняет новый купон.
func (s *Service) Create(ctx context.Context, req models.DummyCoupon) (*models.Coupon, error) {
	const op = "services.coupon.Create"

	code := Normalize(req.Code)
	if n := len([]rune(code)); n < minCodeLen || n > maxCodeLen {
		return nil, fmt.Errorf("%w: code must be %d to %d characters", ErrInvalidCoupon, minCodeLen, maxCodeLen)
	}
	planIDs, err := normalizePlanIDs(req.PlanIDs)
	if err != nil {
		return nil, err
	}

	value, err := decimal.NewFromString(strings.TrimSpace(req.DiscountValue))
	if err != nil {
		return nil, fmt.Errorf("%w: discount_value is not a number", ErrInvalidCoupon)
	}
	minOrder := decimal.Zero
	if strings.TrimSpace(req.MinOrderAmount) != "" {
		minOrder, err = decimal.NewFromString(strings.TrimSpace(req.MinOrderAmount))
		if err != nil || minOrder.IsNegative() {
			return nil, fmt.Errorf("%w: min_order_amount must be a non-negative number", ErrInvalidCoupon)
		}
	}

	switch req.DiscountType {
	case models.DiscountPercentage:
		if !value.IsPositive() || value.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: percentage must be in (0, 100]", ErrInvalidCoupon)
		}
	case models.DiscountFixed:
		if !value.IsPositive() {
			return nil, fmt.Errorf("%w: fixed discount must be positive", ErrInvalidCoupon)
		}
	default:
		return nil, fmt.Errorf("%w: unknown discount type %q", ErrInvalidCoupon, req.DiscountType)
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && !req.ValidUntil.After(*req.ValidFrom) {
		return nil, fmt.Errorf("%w: valid_until must be after valid_from", ErrInvalidCoupon)
	}

	c := models.Coupon{
		ID:             uuid.NewString(),
		Code:           code,
		DiscountType:   req.DiscountType,
		DiscountValue:  value,
		MinOrderAmount: minOrder,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		MaxUses:        req.MaxUses,
		Active:         true,
		PlanIDs:        planIDs,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateCoupon(ctx, c); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, ErrCouponExists
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("coupon created", slog.String("code", c.Code), slog.String("type", c.DiscountType))
	return &c, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrCouponInactive):
		return "inactive"
	case errors.Is(err, ErrCouponNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrCouponExpired):
		return "expired"
	case errors.Is(err, ErrCouponUsageLimit):
		return "usage_limit"
	case errors.Is(err, ErrCouponNotApplicable):
		return "not_applicable"
	case errors.Is(err, ErrCouponMinimumNotMet):
		return "minimum_not_met"
	default:
		return "error"
	}
}
