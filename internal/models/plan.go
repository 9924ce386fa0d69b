package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Периоды оплаты варианта тарифа.
const (
	BillingPeriodMonth   = "month"
	BillingPeriodQuarter = "quarter"
	BillingPeriodYear    = "year"
)

// Plan тариф подписки из CMS. AppointmentAccess — длительность окна доступа
// к телемедицинской сессии; ноль означает значение по умолчанию из конфига.
type Plan struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	AppointmentAccess time.Duration `json:"appointment_access"`
	Variants          []Variant     `json:"variants"`
}

// Variant ценовой вариант тарифа.
type Variant struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	BillingPeriod string          `json:"billing_period"`
	IntervalCount int             `json:"interval_count"`
}

// Variant ищет вариант тарифа по ID.
func (p *Plan) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// PriceMapping связывает вариант тарифа с ценой у платёжного провайдера.
type PriceMapping struct {
	PlanID          string          `json:"plan_id"`
	VariantID       string          `json:"variant_id"`
	ProviderPriceID string          `json:"provider_price_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Interval        string          `json:"interval"`
	IntervalCount   int             `json:"interval_count"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Matches сообщает, совпадает ли сохранённая цена с текущим вариантом.
func (m *PriceMapping) Matches(v Variant) bool {
	return m.Amount.Equal(v.Price) &&
		m.Currency == v.Currency &&
		m.Interval == v.BillingPeriod &&
		m.IntervalCount == v.IntervalCount
}
