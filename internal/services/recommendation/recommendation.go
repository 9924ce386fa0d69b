// Package recommendation связывает движок рекомендаций с каталогом и AI API,
// переписывающим пояснение.
package recommendation

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/metrics"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	engine "github.com/magabrotheeeer/telehealth-storefront/internal/recommendation"
)

const systemPrompt = "You are a friendly telehealth assistant. Rewrite the explanation for the recommended " +
	"treatment in two short sentences of plain text. Do not give medical advice beyond the explanation, " +
	"do not mention other products, do not use markdown."

// Catalog товары категории.
type Catalog interface {
	Products(ctx context.Context, category string) ([]models.Product, error)
}

// Completer AI API. Enabled() == false отключает переписывание.
type Completer interface {
	Enabled() bool
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Service подбор товара по анкете.
type Service struct {
	engine    *engine.Engine
	catalog   Catalog
	completer Completer
	policy    *bluemonday.Policy
	log       *slog.Logger
}

// New создаёт сервис рекомендаций. completer может быть nil.
func New(e *engine.Engine, catalog Catalog, completer Completer, log *slog.Logger) *Service {
	return &Service{
		engine:    e,
		catalog:   catalog,
		completer: completer,
		policy:    bluemonday.StrictPolicy(),
		log:       log,
	}
}

// Categories возвращает описанные категории анкеты.
func (s *Service) Categories() []string {
	return s.engine.Categories()
}

// Recommend подбирает товар категории по ответам.
func (s *Service) Recommend(ctx context.Context, req models.DummyRecommendation) (*models.Recommendation, error) {
	const op = "services.recommendation.Recommend"
	log := s.log.With(sl.Op(op), slog.String("category", req.Category))

	if !s.engine.Has(req.Category) {
		return nil, fmt.Errorf("%s: %w", op, engine.ErrUnknownCategory)
	}

	products, err := s.catalog.Products(ctx, req.Category)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	products = inStock(products)

	rec, err := s.engine.Recommend(req.Category, req.Answers, products)
	if err != nil {
		return nil, err
	}
	metrics.Recommendations.WithLabelValues(req.Category, strconv.FormatBool(rec.Eligible)).Inc()

	if rec.Eligible && s.completer != nil && s.completer.Enabled() {
		text, err := s.completer.Complete(ctx, systemPrompt, prompt(rec, req.Answers))
		switch {
		case err != nil:
			log.Warn("failed to rewrite explanation, using template", sl.Err(err))
		case text != "":
			rec.Explanation = text
		}
	}
	rec.Explanation = s.plainText(rec.Explanation)

	log.Debug("recommendation built", slog.Bool("eligible", rec.Eligible), slog.Int("score", rec.Score))
	return rec, nil
}

// plainText убирает разметку и возвращает обычный текст: ответ уходит в JSON,
// поэтому html-сущности после Sanitize раскрываются обратно.
func (s *Service) plainText(text string) string {
	for i := 0; i < 3; i++ {
		text = html.UnescapeString(s.policy.Sanitize(text))
		if !strings.ContainsAny(text, "<>") {
			break
		}
	}
	return strings.TrimSpace(text)
}

func prompt(rec *models.Recommendation, answers map[string]any) string {
	raw, err := json.Marshal(answers)
	if err != nil {
		raw = []byte("{}")
	}
	return fmt.Sprintf("Category: %s\nRecommended product: %s\nPatient answers: %s\nExplanation: %s",
		rec.Category, rec.Product.Title, raw, rec.Explanation)
}

func inStock(products []models.Product) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.InStock {
			out = append(out, p)
		}
	}
	return out
}
