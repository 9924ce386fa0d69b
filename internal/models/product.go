// Package models содержит доменные структуры витрины: товары и тарифы из CMS,
// купоны, пользовательские подписки, записи на приём и уведомления.
package models

import "github.com/shopspring/decimal"

// Product товар каталога, прочитанный из CMS.
type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"` // очищенный HTML
	ImageURL    string          `json:"image_url,omitempty"`
	InStock     bool            `json:"in_stock"`
}
