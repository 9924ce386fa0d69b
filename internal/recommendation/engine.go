// Package recommendation подбирает товар по ответам анкеты: отсеивает
// неподходящих пациентов правилами категории и ранжирует товары по ключевым словам в названии.
package recommendation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

var (
	// ErrUnknownCategory категория не описана.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNoProducts в категории нет товаров.
	ErrNoProducts = errors.New("no products in category")
	// ErrInvalidAnswers ответ имеет тип, который правило не может сравнить.
	ErrInvalidAnswers = errors.New("invalid answers")
)

// MissingAnswersError перечисляет обязательные вопросы без ответа.
type MissingAnswersError struct {
	Missing []string
}

func (e *MissingAnswersError) Error() string {
	return "missing answers: " + strings.Join(e.Missing, ", ")
}

// IneligibleExplanation текст для пациента, не прошедшего правила категории.
const IneligibleExplanation = "Based on your answers we can't recommend an online treatment. Please book a consultation with a clinician."

// Rule правило допуска: если When истинно, пациент не подходит по причине Reason.
type Rule struct {
	When   string
	Reason string
}

// KeywordGroup добавляет Weight очков за каждое слово из Terms в названии товара,
// если условие When истинно или пусто.
type KeywordGroup struct {
	When   string
	Terms  []string
	Weight int
}

// Category набор правил одной категории анкеты. В Explanation подстрока {product}
// заменяется на название выбранного товара.
type Category struct {
	Name        string
	Required    []string
	Rules       []Rule
	Keywords    []KeywordGroup
	Explanation string
}

type compiledRule struct {
	expr   string
	prg    cel.Program
	reason string
}

type compiledGroup struct {
	expr   string
	prg    cel.Program // nil — группа действует всегда
	terms  []string
	weight int
}

type compiledCategory struct {
	Category
	rules  []compiledRule
	groups []compiledGroup
}

// Engine компилирует правила один раз и потом безопасен для конкурентного использования.
type Engine struct {
	categories map[string]*compiledCategory
	names      []string
}

// Scored товар с набранными очками.
type Scored struct {
	Product models.Product
	Score   int
}

// NewEngine компилирует выражения всех категорий.
func NewEngine(categories []Category) (*Engine, error) {
	const op = "recommendation.NewEngine"

	env, err := cel.NewEnv(cel.Variable("answers", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e := &Engine{categories: make(map[string]*compiledCategory, len(categories))}
	for _, c := range categories {
		cc := &compiledCategory{Category: c}
		for _, r := range c.Rules {
			prg, err := compile(env, r.When)
			if err != nil {
				return nil, fmt.Errorf("%s: category %s: %w", op, c.Name, err)
			}
			cc.rules = append(cc.rules, compiledRule{expr: r.When, prg: prg, reason: r.Reason})
		}
		for _, g := range c.Keywords {
			group := compiledGroup{expr: g.When, terms: lowerAll(g.Terms), weight: g.Weight}
			if g.When != "" {
				if group.prg, err = compile(env, g.When); err != nil {
					return nil, fmt.Errorf("%s: category %s: %w", op, c.Name, err)
				}
			}
			cc.groups = append(cc.groups, group)
		}
		e.categories[c.Name] = cc
		e.names = append(e.names, c.Name)
	}
	return e, nil
}

// Categories возвращает имена категорий в порядке объявления.
func (e *Engine) Categories() []string {
	return append([]string(nil), e.names...)
}

// Has сообщает, описана ли категория.
func (e *Engine) Has(category string) bool {
	_, ok := e.categories[category]
	return ok
}

// Recommend проверяет допуск и выбирает товар с наибольшим счётом. При равенстве
// очков побеждает товар, стоящий раньше в products; если ни один товар не набрал
// очков, выбирается первый.
func (e *Engine) Recommend(category string, answers map[string]any, products []models.Product) (*models.Recommendation, error) {
	const op = "recommendation.Recommend"

	c, ok := e.categories[category]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnknownCategory, category)
	}
	if missing := c.missing(answers); len(missing) > 0 {
		return nil, &MissingAnswersError{Missing: missing}
	}

	vars := map[string]any{"answers": normalize(answers)}

	var reasons []string
	for _, r := range c.rules {
		hit, err := evalBool(r.prg, vars)
		if err != nil {
			return nil, fmt.Errorf("%s: rule %q: %w", op, r.expr, err)
		}
		if hit {
			reasons = append(reasons, r.reason)
		}
	}
	if len(reasons) > 0 {
		return &models.Recommendation{
			Category:    category,
			Eligible:    false,
			Reasons:     reasons,
			Explanation: IneligibleExplanation,
		}, nil
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoProducts)
	}

	ranked, err := c.rank(vars, products)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	winner := ranked[0]
	return &models.Recommendation{
		Category:    category,
		Eligible:    true,
		Product:     &winner.Product,
		Score:       winner.Score,
		Explanation: strings.ReplaceAll(c.Explanation, "{product}", winner.Product.Title),
	}, nil
}

func (c *compiledCategory) missing(answers map[string]any) []string {
	var missing []string
	for _, key := range c.Required {
		v, ok := answers[key]
		if !ok || v == nil {
			missing = append(missing, key)
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// rank считает очки всех товаров и сортирует их устойчиво по убыванию.
func (c *compiledCategory) rank(vars map[string]any, products []models.Product) ([]Scored, error) {
	var active []compiledGroup
	for _, g := range c.groups {
		if g.prg == nil {
			active = append(active, g)
			continue
		}
		on, err := evalBool(g.prg, vars)
		if err != nil {
			return nil, fmt.Errorf("keyword condition %q: %w", g.expr, err)
		}
		if on {
			active = append(active, g)
		}
	}

	scored := make([]Scored, len(products))
	for i, p := range products {
		title := strings.ToLower(p.Title)
		score := 0
		for _, g := range active {
			for _, term := range g.terms {
				if strings.Contains(title, term) {
					score += g.weight
				}
			}
		}
		scored[i] = Scored{Product: p, Score: score}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored, nil
}

func compile(env *cel.Env, expr string) (cel.Program, error) {
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, iss.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("compile %q: expression must be boolean, got %s", expr, out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return prg, nil
}

func evalBool(prg cel.Program, vars map[string]any) (bool, error) {
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidAnswers, err.Error())
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: non-boolean result %v", ErrInvalidAnswers, out.Value())
	}
	return b, nil
}

// normalize приводит целые числа к float64, как после разбора JSON.
func normalize(answers map[string]any) map[string]any {
	out := make(map[string]any, len(answers))
	for k, v := range answers {
		switch n := v.(type) {
		case int:
			out[k] = float64(n)
		case int32:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		case float32:
			out[k] = float64(n)
		default:
			out[k] = v
		}
	}
	return out
}

func lowerAll(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}
