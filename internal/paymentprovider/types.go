package paymentprovider

import "time"

// Amount представляет денежную сумму.
type Amount struct {
	Value    string `json:"value"`    // сумма, например "200.00"
	Currency string `json:"currency"` // валюта, например "USD"
}

// CreatePriceRequest запрос на создание цены для варианта тарифа.
type CreatePriceRequest struct {
	Amount        Amount            `json:"amount"`
	Interval      string            `json:"interval"` // day, week, month, year
	IntervalCount int               `json:"interval_count"`
	Nickname      string            `json:"nickname,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"` // plan_id, variant_id
}

// Price цена у провайдера.
type Price struct {
	ID            string    `json:"id"`
	Active        bool      `json:"active"`
	Amount        Amount    `json:"amount"`
	Interval      string    `json:"interval"`
	IntervalCount int       `json:"interval_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateSubscriptionRequest запрос на создание регулярного платежа по цене.
type CreateSubscriptionRequest struct {
	PriceID       string            `json:"price_id"`
	CustomerID    string            `json:"customer_id"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	Discount      *Amount           `json:"discount,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"` // user_uid, subscription_id
}

// Subscription подписка у провайдера.
type Subscription struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	ConfirmationURL string    `json:"confirmation_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// WebhookEvent уведомление провайдера о платеже.
type WebhookEvent struct {
	Event  string `json:"event"`
	Object struct {
		ID             string            `json:"id"`     // payment ID
		Status         string            `json:"status"` // статус платежа
		SubscriptionID string            `json:"subscription_id"`
		Amount         Amount            `json:"amount"`
		Metadata       map[string]string `json:"metadata"`
	} `json:"object"`
}

// События webhook.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentCanceled  = "payment.canceled"
	EventRefundSucceeded  = "refund.succeeded"
)
