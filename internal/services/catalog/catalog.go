// Package catalog отдаёт товары и тарифы из CMS через кеш redis.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

const (
	keyPrefix     = "catalog:"
	keyPlans      = keyPrefix + "plans"
	keyProductsOf = keyPrefix + "products:"

	maxSuggestions = 3
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrPlanNotFound    = errors.New("plan not found")
	ErrVariantNotFound = errors.New("plan variant not found")
)

// ProductNotFoundError неизвестный slug с похожими вариантами.
type ProductNotFoundError struct {
	Slug        string
	Suggestions []string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %q not found", e.Slug)
}

// Is позволяет сравнивать ошибку с ErrProductNotFound.
func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// CMS источник контента.
type CMS interface {
	Products(ctx context.Context, category string) ([]models.Product, error)
	Plans(ctx context.Context) ([]models.Plan, error)
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Service читает каталог. cache может быть nil.
type Service struct {
	cms      CMS
	cache    Cache
	ttl      time.Duration
	currency string
	log      *slog.Logger
}

// New создаёт сервис каталога. currency подставляется в товары и варианты без валюты.
func New(cms CMS, cache Cache, ttl time.Duration, currency string, log *slog.Logger) *Service {
	return &Service{
		cms:      cms,
		cache:    cache,
		ttl:      ttl,
		currency: strings.ToUpper(currency),
		log:      log,
	}
}

// Products возвращает товары категории; пустая категория — все товары.
func (s *Service) Products(ctx context.Context, category string) ([]models.Product, error) {
	const op = "services.catalog.Products"

	key := keyProductsOf + category
	if category == "" {
		key = keyProductsOf + "all"
	}

	var products []models.Product
	if s.fromCache(ctx, key, &products) {
		return products, nil
	}

	products, err := s.cms.Products(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range products {
		if products[i].Currency == "" {
			products[i].Currency = s.currency
		}
	}
	s.toCache(ctx, key, products)
	return products, nil
}

// Product ищет товар по slug. Для неизвестного slug возвращает
// ProductNotFoundError с похожими slug.
func (s *Service) Product(ctx context.Context, slug string) (*models.Product, error) {
	const op = "services.catalog.Product"

	products, err := s.Products(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	for i := range products {
		if strings.EqualFold(products[i].Slug, slug) {
			return &products[i], nil
		}
	}

	slugs := make([]string, len(products))
	for i, p := range products {
		slugs[i] = p.Slug
	}
	return nil, &ProductNotFoundError{Slug: slug, Suggestions: Suggest(slug, slugs, maxSuggestions)}
}

// Plans возвращает тарифы подписки.
func (s *Service) Plans(ctx context.Context) ([]models.Plan, error) {
	const op = "services.catalog.Plans"

	var plans []models.Plan
	if s.fromCache(ctx, keyPlans, &plans) {
		return plans, nil
	}

	plans, err := s.cms.Plans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range plans {
		for j := range plans[i].Variants {
			if plans[i].Variants[j].Currency == "" {
				plans[i].Variants[j].Currency = s.currency
			}
		}
	}
	s.toCache(ctx, keyPlans, plans)
	return plans, nil
}

// Plan возвращает тариф по ID.
func (s *Service) Plan(ctx context.Context, id string) (*models.Plan, error) {
	const op = "services.catalog.Plan"

	plans, err := s.Plans(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range plans {
		if plans[i].ID == id {
			return &plans[i], nil
		}
	}
	return nil, ErrPlanNotFound
}

// PlanVariant возвращает тариф и его вариант.
func (s *Service) PlanVariant(ctx context.Context, planID, variantID string) (*models.Plan, models.Variant, error) {
	plan, err := s.Plan(ctx, planID)
	if err != nil {
		return nil, models.Variant{}, err
	}
	v, ok := plan.Variant(variantID)
	if !ok {
		return nil, models.Variant{}, ErrVariantNotFound
	}
	return plan, v, nil
}

// Invalidate сбрасывает кеш каталога.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidatePrefix(ctx, keyPrefix)
}

func (s *Service) fromCache(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, out)
	if err != nil {
		s.log.Warn("catalog cache read failed", slog.String("key", key), sl.Err(err))
		return false
	}
	return found
}

func (s *Service) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.log.Warn("catalog cache write failed", slog.String("key", key), sl.Err(err))
	}
}

// Suggest возвращает до limit кандидатов, ближайших к query по расстоянию Левенштейна.
// Слишком далёкие кандидаты отбрасываются.
func Suggest(query string, candidates []string, limit int) []string {
	type scored struct {
		value    string
		distance int
	}
	maxDistance := len(query) / 2
	if maxDistance < 2 {
		maxDistance = 2
	}

	var matches []scored
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(query, c)
		if d <= maxDistance || (query != "" && strings.Contains(c, query)) {
			matches = append(matches, scored{value: c, distance: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].distance < matches[j].distance })

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.value
	}
	return out
}
