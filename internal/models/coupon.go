package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Типы скидки купона.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Coupon купон на скидку. MaxUses == nil означает неограниченное число применений,
// пустой PlanIDs — купон действует на все тарифы.
type Coupon struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	DiscountType   string          `json:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	ValidFrom      *time.Time      `json:"valid_from,omitempty"`
	ValidUntil     *time.Time      `json:"valid_until,omitempty"`
	MaxUses        *int            `json:"max_uses,omitempty"`
	UsageCount     int             `json:"usage_count"`
	Active         bool            `json:"active"`
	PlanIDs        []string        `json:"plan_ids,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DummyCoupon используется для приёма данных нового купона из JSON-запроса.
type DummyCoupon struct {
	Code           string     `json:"code" validate:"required,max=128"`
	DiscountType   string     `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue  string     `json:"discount_value" validate:"required"`
	MinOrderAmount string     `json:"min_order_amount,omitempty"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	MaxUses        *int       `json:"max_uses,omitempty" validate:"omitempty,gt=0"`
	PlanIDs        []string   `json:"plan_ids,omitempty" validate:"omitempty,dive,excludesall=0x2C"`
}

// CouponQuote результат проверки купона для конкретной суммы заказа.
type CouponQuote struct {
	Code           string          `json:"code"`
	DiscountType   string          `json:"discount_type"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

// DummyCouponValidation запрос на проверку купона для суммы заказа.
type DummyCouponValidation struct {
	Code   string `json:"code" validate:"required,max=64"`
	PlanID string `json:"plan_id,omitempty"`
	Amount string `json:"amount" validate:"required"`
}
