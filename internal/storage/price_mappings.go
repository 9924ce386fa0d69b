package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

// GetPriceMapping возвращает сохранённую цену провайдера для варианта тарифа.
func (s *Storage) GetPriceMapping(ctx context.Context, planID, variantID string) (*models.PriceMapping, error) {
	const op = "storage.GetPriceMapping"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT plan_id, variant_id, provider_price_id, amount, currency,
				billing_interval, interval_count, updated_at
			  FROM price_mappings WHERE plan_id = $1 AND variant_id = $2`
	var m models.PriceMapping
	err := s.DB.QueryRowContext(ctx, query, planID, variantID).Scan(&m.PlanID, &m.VariantID,
		&m.ProviderPriceID, &m.Amount, &m.Currency, &m.Interval, &m.IntervalCount, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFoundIfNoRows(err))
	}
	return &m, nil
}

// UpsertPriceMapping создаёт или заменяет цену провайдера для варианта тарифа.
func (s *Storage) UpsertPriceMapping(ctx context.Context, m models.PriceMapping) error {
	const op = "storage.UpsertPriceMapping"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO price_mappings (plan_id, variant_id, provider_price_id, amount, currency,
				billing_interval, interval_count, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (plan_id, variant_id) DO UPDATE SET
				provider_price_id = EXCLUDED.provider_price_id,
				amount = EXCLUDED.amount,
				currency = EXCLUDED.currency,
				billing_interval = EXCLUDED.billing_interval,
				interval_count = EXCLUDED.interval_count,
				updated_at = EXCLUDED.updated_at`
	_, err := s.DB.ExecContext(ctx, query, m.PlanID, m.VariantID, m.ProviderPriceID, m.Amount,
		m.Currency, m.Interval, m.IntervalCount, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
