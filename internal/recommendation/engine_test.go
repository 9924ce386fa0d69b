package recommendation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

func newDefaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultCategories())
	require.NoError(t, err)
	return e
}

func products(titles ...string) []models.Product {
	out := make([]models.Product, len(titles))
	for i, title := range titles {
		out[i] = models.Product{ID: title, Title: title}
	}
	return out
}

func TestNewEngine_CompilesDefaults(t *testing.T) {
	e := newDefaultEngine(t)
	assert.Equal(t, []string{CategoryHairLoss, CategoryWeightLoss, CategorySkinCare, CategorySexualHealth}, e.Categories())
	assert.True(t, e.Has(CategorySkinCare))
	assert.False(t, e.Has("dental"))
}

func TestNewEngine_RejectsBadExpressions(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
	}{
		{name: "syntax error", cat: Category{Name: "x", Rules: []Rule{{When: `answers.age <`}}}},
		{name: "non boolean rule", cat: Category{Name: "x", Rules: []Rule{{When: `1 + 2`}}}},
		{name: "unknown variable", cat: Category{Name: "x", Keywords: []KeywordGroup{{When: `profile.age > 1`}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine([]Category{tt.cat})
			require.Error(t, err)
		})
	}
}

func TestRecommend(t *testing.T) {
	e := newDefaultEngine(t)

	tests := []struct {
		name         string
		category     string
		answers      map[string]any
		products     []models.Product
		wantEligible bool
		wantProduct  string
		wantScore    int
		wantReasons  int
	}{
		{
			name:         "male hair loss prefers finasteride",
			category:     CategoryHairLoss,
			answers:      map[string]any{"age": 30.0, "sex": "male", "pattern": "receding"},
			products:     products("Minoxidil Foam", "Finasteride 1mg", "Biotin Gummies"),
			wantEligible: true,
			wantProduct:  "Finasteride 1mg",
			wantScore:    4,
		},
		{
			name:         "female thinning prefers minoxidil foam",
			category:     CategoryHairLoss,
			answers:      map[string]any{"age": 41, "sex": "female", "pattern": "thinning"},
			products:     products("Finasteride 1mg", "Minoxidil Foam 5%"),
			wantEligible: true,
			wantProduct:  "Minoxidil Foam 5%",
			wantScore:    6,
		},
		{
			name:         "high bmi prefers tirzepatide",
			category:     CategoryWeightLoss,
			answers:      map[string]any{"age": 45.0, "bmi": 38.2},
			products:     products("Semaglutide Injection", "Tirzepatide Injection"),
			wantEligible: true,
			wantProduct:  "Tirzepatide Injection",
			wantScore:    4,
		},
		{
			name:         "tie keeps input order",
			category:     CategorySkinCare,
			answers:      map[string]any{"age": 25.0, "concern": "acne"},
			products:     products("Acne Cream", "Clindamycin Cream"),
			wantEligible: true,
			wantProduct:  "Acne Cream",
			wantScore:    4,
		},
		{
			name:         "zero scores fall back to first product",
			category:     CategorySexualHealth,
			answers:      map[string]any{"age": 50.0, "concern": "low_libido"},
			products:     products("Wellness Kit", "Vitamin Pack"),
			wantEligible: true,
			wantProduct:  "Wellness Kit",
			wantScore:    0,
		},
		{
			name:         "underage and patchy collect both reasons",
			category:     CategoryHairLoss,
			answers:      map[string]any{"age": 16.0, "sex": "male", "pattern": "patchy"},
			products:     products("Finasteride 1mg"),
			wantEligible: false,
			wantReasons:  2,
		},
		{
			name:         "low bmi is ineligible",
			category:     CategoryWeightLoss,
			answers:      map[string]any{"age": 30.0, "bmi": 24.0},
			products:     products("Semaglutide Injection"),
			wantEligible: false,
			wantReasons:  1,
		},
		{
			name:         "nitrates rule out sexual health treatment",
			category:     CategorySexualHealth,
			answers:      map[string]any{"age": 60.0, "concern": "ed", "nitrates": true},
			products:     products("Sildenafil 50mg"),
			wantEligible: false,
			wantReasons:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Recommend(tt.category, tt.answers, tt.products)
			require.NoError(t, err)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.wantEligible, got.Eligible)
			if !tt.wantEligible {
				assert.Len(t, got.Reasons, tt.wantReasons)
				assert.Nil(t, got.Product)
				assert.Equal(t, IneligibleExplanation, got.Explanation)
				return
			}
			require.NotNil(t, got.Product)
			assert.Equal(t, tt.wantProduct, got.Product.Title)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Contains(t, got.Explanation, tt.wantProduct)
		})
	}
}

func TestRecommend_Errors(t *testing.T) {
	e := newDefaultEngine(t)

	t.Run("unknown category", func(t *testing.T) {
		_, err := e.Recommend("dental", map[string]any{}, products("x"))
		require.ErrorIs(t, err, ErrUnknownCategory)
	})

	t.Run("missing answers", func(t *testing.T) {
		_, err := e.Recommend(CategoryHairLoss, map[string]any{"age": 30.0, "sex": " "}, products("x"))
		var missing *MissingAnswersError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, []string{"sex", "pattern"}, missing.Missing)
	})

	t.Run("no products", func(t *testing.T) {
		_, err := e.Recommend(CategoryWeightLoss, map[string]any{"age": 30.0, "bmi": 30.0}, nil)
		require.ErrorIs(t, err, ErrNoProducts)
	})

	t.Run("wrong answer type", func(t *testing.T) {
		_, err := e.Recommend(CategoryWeightLoss, map[string]any{"age": "thirty", "bmi": 30.0}, products("x"))
		require.ErrorIs(t, err, ErrInvalidAnswers)
	})
}
