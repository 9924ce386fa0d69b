package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

// ErrLimitReached купон исчерпал лимит применений.
var ErrLimitReached = errors.New("usage limit reached")

const couponColumns = `id, code, discount_type, discount_value, min_order_amount,
	valid_from, valid_until, max_uses, usage_count, active, plan_ids, created_at`

// CreateCoupon сохраняет новый купон.
func (s *Storage) CreateCoupon(ctx context.Context, c models.Coupon) error {
	const op = "storage.CreateCoupon"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	var maxUses sql.NullInt64
	if c.MaxUses != nil {
		maxUses = sql.NullInt64{Int64: int64(*c.MaxUses), Valid: true}
	}

	query := `INSERT INTO coupons (id, code, discount_type, discount_value, min_order_amount,
				valid_from, valid_until, max_uses, usage_count, active, plan_ids, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.DB.ExecContext(ctx, query,
		c.ID, c.Code, c.DiscountType, c.DiscountValue, c.MinOrderAmount,
		c.ValidFrom, c.ValidUntil, maxUses, c.UsageCount, c.Active,
		strings.Join(c.PlanIDs, ","), c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetCouponByCode возвращает купон по коду.
func (s *Storage) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	const op = "storage.GetCouponByCode"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code)

	var (
		c       models.Coupon
		validFr sql.NullTime
		validTo sql.NullTime
		maxUses sql.NullInt64
		planIDs string
	)
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MinOrderAmount,
		&validFr, &validTo, &maxUses, &c.UsageCount, &c.Active, &planIDs, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFoundIfNoRows(err))
	}
	if validFr.Valid {
		c.ValidFrom = &validFr.Time
	}
	if validTo.Valid {
		c.ValidUntil = &validTo.Time
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		c.MaxUses = &n
	}
	if planIDs != "" {
		c.PlanIDs = strings.Split(planIDs, ",")
	}
	return &c, nil
}

// RedeemCoupon атомарно увеличивает счётчик применений купона,
// если лимит ещё не исчерпан.
func (s *Storage) RedeemCoupon(ctx context.Context, code string) error {
	const op = "storage.RedeemCoupon"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE coupons SET usage_count = usage_count + 1
			  WHERE code = $1 AND active AND (max_uses IS NULL OR usage_count < max_uses)`
	result, err := s.DB.ExecContext(ctx, query, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrLimitReached)
	}
	return nil
}
