// Package pricesync сверяет цены вариантов тарифов из CMS с ценами платёжного провайдера.
package pricesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/period"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/metrics"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/paymentprovider"
	"github.com/magabrotheeeer/telehealth-storefront/internal/storage"
)

// ErrInvalidPrice у варианта нет положительной цены.
var ErrInvalidPrice = errors.New("variant price must be positive")

// Outcome результат синхронизации одного варианта.
type Outcome string

const (
	Created   Outcome = "created"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
	Failed    Outcome = "failed"
)

// VariantResult итог по варианту тарифа.
type VariantResult struct {
	PlanID          string  `json:"plan_id"`
	VariantID       string  `json:"variant_id"`
	Outcome         Outcome `json:"outcome"`
	ProviderPriceID string  `json:"provider_price_id,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// Report итог прогона синхронизации.
type Report struct {
	Results   []VariantResult `json:"results"`
	Created   int             `json:"created"`
	Updated   int             `json:"updated"`
	Unchanged int             `json:"unchanged"`
	Failed    int             `json:"failed"`
}

func (r *Report) add(res VariantResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case Created:
		r.Created++
	case Updated:
		r.Updated++
	case Unchanged:
		r.Unchanged++
	case Failed:
		r.Failed++
	}
	metrics.PriceSync.WithLabelValues(string(res.Outcome)).Inc()
}

// Repository хранилище соответствия вариантов и цен провайдера.
type Repository interface {
	GetPriceMapping(ctx context.Context, planID, variantID string) (*models.PriceMapping, error)
	UpsertPriceMapping(ctx context.Context, m models.PriceMapping) error
}

// Provider операции с ценами у платёжного провайдера.
type Provider interface {
	CreatePrice(ctx context.Context, req paymentprovider.CreatePriceRequest) (*paymentprovider.Price, error)
	ArchivePrice(ctx context.Context, priceID string) error
}

// Plans источник тарифов.
type Plans interface {
	Plans(ctx context.Context) ([]models.Plan, error)
}

// Service синхронизирует цены.
type Service struct {
	repo     Repository
	provider Provider
	plans    Plans
	log      *slog.Logger
}

// New создаёт сервис синхронизации цен.
func New(repo Repository, provider Provider, plans Plans, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		plans:    plans,
		log:      log,
	}
}

// Sync проходит по всем вариантам всех тарифов. Ошибка по одному варианту
// попадает в отчёт и не останавливает прогон.
func (s *Service) Sync(ctx context.Context) (*Report, error) {
	const op = "services.pricesync.Sync"

	plans, err := s.plans.Plans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &Report{}
	for i := range plans {
		for _, v := range plans[i].Variants {
			if err := ctx.Err(); err != nil {
				return report, fmt.Errorf("%s: %w", op, err)
			}
			res := s.syncVariant(ctx, &plans[i], v)
			if res.Outcome == Failed {
				s.log.Error("price sync failed for variant",
					slog.String("plan_id", res.PlanID),
					slog.String("variant_id", res.VariantID),
					slog.String("error", res.Error))
			}
			report.add(res)
		}
	}

	s.log.Info("price sync finished",
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("failed", report.Failed))
	return report, nil
}

// EnsurePrice возвращает ID цены провайдера для варианта, при необходимости создавая её.
func (s *Service) EnsurePrice(ctx context.Context, plan *models.Plan, v models.Variant) (string, error) {
	const op = "services.pricesync.EnsurePrice"

	res := s.syncVariant(ctx, plan, v)
	if res.Outcome == Failed {
		return "", fmt.Errorf("%s: %s", op, res.Error)
	}
	if res.Outcome != Unchanged {
		metrics.PriceSync.WithLabelValues(string(res.Outcome)).Inc()
	}
	return res.ProviderPriceID, nil
}

func (s *Service) syncVariant(ctx context.Context, plan *models.Plan, v models.Variant) VariantResult {
	res := VariantResult{PlanID: plan.ID, VariantID: v.ID}
	fail := func(err error) VariantResult {
		res.Outcome = Failed
		res.Error = err.Error()
		return res
	}

	if !v.Price.IsPositive() {
		return fail(fmt.Errorf("%w: %s", ErrInvalidPrice, v.Price.StringFixed(2)))
	}

	current, err := s.repo.GetPriceMapping(ctx, plan.ID, v.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fail(err)
	}
	if current != nil && current.Matches(v) {
		res.Outcome = Unchanged
		res.ProviderPriceID = current.ProviderPriceID
		return res
	}

	interval, count, err := period.ProviderInterval(v.BillingPeriod, v.IntervalCount)
	if err != nil {
		return fail(err)
	}
	price, err := s.provider.CreatePrice(ctx, paymentprovider.CreatePriceRequest{
		Amount:        paymentprovider.Amount{Value: v.Price.StringFixed(2), Currency: v.Currency},
		Interval:      interval,
		IntervalCount: count,
		Nickname:      plan.Title + " / " + v.Title,
		Metadata:      map[string]string{"plan_id": plan.ID, "variant_id": v.ID},
	})
	if err != nil {
		return fail(err)
	}

	err = s.repo.UpsertPriceMapping(ctx, models.PriceMapping{
		PlanID:          plan.ID,
		VariantID:       v.ID,
		ProviderPriceID: price.ID,
		Amount:          v.Price,
		Currency:        v.Currency,
		Interval:        v.BillingPeriod,
		IntervalCount:   v.IntervalCount,
		UpdatedAt:       time.Now().UTC(),
	})
	if err != nil {
		return fail(err)
	}

	if current != nil {
		if err := s.provider.ArchivePrice(ctx, current.ProviderPriceID); err != nil {
			s.log.Warn("failed to archive old price",
				slog.String("price_id", current.ProviderPriceID), sl.Err(err))
		}
	}

	res.ProviderPriceID = price.ID
	res.Outcome = Created
	if current != nil {
		res.Outcome = Updated
	}
	return res
}
