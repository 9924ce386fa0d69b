package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы пользовательской подписки.
const (
	SubscriptionPending  = "pending"
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// UserSubscription подписка пользователя на тариф вместе с окном доступа к приёму.
// AccessStartedAt заполняется при первом входе в сессию, AccessExpired
// выставляется один раз и больше не сбрасывается.
type UserSubscription struct {
	ID                     string          `json:"id"`
	UserUID                string          `json:"user_uid"`
	Email                  string          `json:"email"`
	PlanID                 string          `json:"plan_id"`
	VariantID              string          `json:"variant_id"`
	ProviderSubscriptionID string          `json:"provider_subscription_id,omitempty"`
	Status                 string          `json:"status"`
	Amount                 decimal.Decimal `json:"amount"`
	Currency               string          `json:"currency"`
	CouponCode             string          `json:"coupon_code,omitempty"`
	CurrentPeriodEnd       time.Time       `json:"current_period_end"`
	AccessStartedAt        *time.Time      `json:"access_started_at,omitempty"`
	AccessDuration         time.Duration   `json:"access_duration"`
	AccessExpired          bool            `json:"access_expired"`
	CreatedAt              time.Time       `json:"created_at"`
}

// DummySubscription используется для приёма запроса на оформление подписки.
type DummySubscription struct {
	PlanID     string `json:"plan_id" validate:"required"`
	VariantID  string `json:"variant_id" validate:"required"`
	CouponCode string `json:"coupon_code,omitempty" validate:"omitempty,max=64"`
}

// AccessStatus ответ о состоянии окна доступа подписки.
type AccessStatus struct {
	SubscriptionID   string     `json:"subscription_id"`
	Allowed          bool       `json:"allowed"`
	Expired          bool       `json:"expired"`
	Started          bool       `json:"started"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	RemainingSeconds int64      `json:"remaining_seconds"`
}

// SubscriptionCheckout результат оформления подписки: сохранённая подписка,
// ссылка на подтверждение оплаты и применённая скидка.
type SubscriptionCheckout struct {
	Subscription    *UserSubscription `json:"subscription"`
	ConfirmationURL string            `json:"confirmation_url,omitempty"`
	Coupon          *CouponQuote      `json:"coupon,omitempty"`
}
