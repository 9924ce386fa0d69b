// Package cms читает товары и тарифы из headless CMS через её query API.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/magabrotheeeer/telehealth-storefront/internal/config"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

const (
	productsQuery = `*[_type == "product"] | order(title asc){
		_id, title, slug, category, price, currency, description,
		"imageUrl": image.asset->url, inStock
	}`
	productsByCategoryQuery = `*[_type == "product" && category == $category] | order(title asc){
		_id, title, slug, category, price, currency, description,
		"imageUrl": image.asset->url, inStock
	}`
	plansQuery = `*[_type == "subscriptionPlan"] | order(title asc){
		_id, title, description, appointmentAccessHours,
		variants[]{_key, title, price, currency, billingPeriod, intervalCount}
	}`
)

// ErrInvalidPrice цена в CMS не задана, не число или не больше нуля.
var ErrInvalidPrice = errors.New("invalid price")

// Client выполняет запросы к CMS.
type Client struct {
	baseURL    string
	dataset    string
	apiVersion string
	token      string
	httpClient *http.Client
	policy     *bluemonday.Policy
}

// NewClient создаёт клиента CMS.
func NewClient(cfg config.CMS) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		dataset:    cfg.Dataset,
		apiVersion: strings.TrimPrefix(cfg.APIVersion, "v"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		policy:     bluemonday.UGCPolicy(),
	}
}

// Query выполняет GROQ-запрос и возвращает поле result ответа.
// Значения params передаются как JSON-литералы параметров $name.
func (c *Client) Query(ctx context.Context, query string, params map[string]string) (gjson.Result, error) {
	const op = "cms.Query"

	values := url.Values{}
	values.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("%s: %w", op, err)
		}
		values.Set("$"+name, string(encoded))
	}

	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s",
		c.baseURL, c.apiVersion, url.PathEscape(c.dataset), values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode,
			gjson.GetBytes(body, "error.description").String())
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s: invalid json response", op)
	}
	return gjson.GetBytes(body, "result"), nil
}

// Products возвращает товары категории. Пустая категория означает все товары.
// Товары без корректной цены пропускаются.
func (c *Client) Products(ctx context.Context, category string) ([]models.Product, error) {
	const op = "cms.Products"

	query, params := productsQuery, map[string]string(nil)
	if category != "" {
		query, params = productsByCategoryQuery, map[string]string{"category": category}
	}
	result, err := c.Query(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	products := make([]models.Product, 0, len(result.Array()))
	for _, item := range result.Array() {
		product, err := c.parseProduct(item)
		if err != nil {
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

// Plans возвращает тарифы подписки. Вариант без корректной цены остаётся в списке
// с нулевой ценой: синхронизация цен отмечает его как failed, а оформить его нельзя.
func (c *Client) Plans(ctx context.Context) ([]models.Plan, error) {
	const op = "cms.Plans"

	result, err := c.Query(ctx, plansQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	plans := make([]models.Plan, 0, len(result.Array()))
	for _, item := range result.Array() {
		plan := models.Plan{
			ID:                item.Get("_id").String(),
			Title:             item.Get("title").String(),
			Description:       c.richText(item.Get("description")),
			AppointmentAccess: time.Duration(item.Get("appointmentAccessHours").Float() * float64(time.Hour)),
		}
		for _, v := range item.Get("variants").Array() {
			price, err := parsePrice(v.Get("price"))
			if err != nil {
				price = decimal.Zero
			}
			variant := models.Variant{
				ID:            v.Get("_key").String(),
				Title:         v.Get("title").String(),
				Price:         price,
				Currency:      strings.ToUpper(v.Get("currency").String()),
				BillingPeriod: v.Get("billingPeriod").String(),
				IntervalCount: int(v.Get("intervalCount").Int()),
			}
			if variant.BillingPeriod == "" {
				variant.BillingPeriod = models.BillingPeriodMonth
			}
			if variant.IntervalCount <= 0 {
				variant.IntervalCount = 1
			}
			plan.Variants = append(plan.Variants, variant)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (c *Client) parseProduct(item gjson.Result) (models.Product, error) {
	price, err := parsePrice(item.Get("price"))
	if err != nil {
		return models.Product{}, err
	}
	title := item.Get("title").String()
	productSlug := strings.ToLower(strings.TrimSpace(item.Get("slug.current").String()))
	if productSlug == "" {
		productSlug = slug.Make(title)
	}
	inStock := true
	if v := item.Get("inStock"); v.Exists() && v.Type != gjson.Null {
		inStock = v.Bool()
	}
	return models.Product{
		ID:          item.Get("_id").String(),
		Title:       title,
		Slug:        productSlug,
		Category:    item.Get("category").String(),
		Price:       price,
		Currency:    strings.ToUpper(item.Get("currency").String()),
		Description: c.richText(item.Get("description")),
		ImageURL:    item.Get("imageUrl").String(),
		InStock:     inStock,
	}, nil
}

// richText приводит описание к безопасному HTML. CMS отдаёт либо строку с HTML,
// либо массив блоков с дочерними span.
func (c *Client) richText(v gjson.Result) string {
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	if !v.IsArray() {
		return strings.TrimSpace(c.policy.Sanitize(v.String()))
	}

	var b strings.Builder
	for _, block := range v.Array() {
		if block.Get("_type").String() != "block" {
			continue
		}
		var text strings.Builder
		for _, span := range block.Get("children.#.text").Array() {
			text.WriteString(html.EscapeString(span.String()))
		}
		if text.Len() == 0 {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(text.String())
		b.WriteString("</p>")
	}
	return c.policy.Sanitize(b.String())
}

func parsePrice(v gjson.Result) (decimal.Decimal, error) {
	if !v.Exists() || v.Type == gjson.Null {
		return decimal.Zero, fmt.Errorf("%w: missing", ErrInvalidPrice)
	}
	raw := v.Raw
	if v.Type == gjson.String {
		raw = v.String()
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidPrice, d)
	}
	return d, nil
}
