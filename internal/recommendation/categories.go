package recommendation

// Категории анкеты.
const (
	CategoryHairLoss     = "hair_loss"
	CategoryWeightLoss   = "weight_loss"
	CategorySkinCare     = "skin_care"
	CategorySexualHealth = "sexual_health"
)

// DefaultCategories возвращает правила встроенных категорий. Выражения пишутся
// на CEL и видят ответы анкеты как map answers; числа приходят как double.
func DefaultCategories() []Category {
	return []Category{
		{
			Name:     CategoryHairLoss,
			Required: []string{"age", "sex", "pattern"},
			Rules: []Rule{
				{When: `answers.age < 18.0`, Reason: "you must be 18 or older for this treatment"},
				{When: `answers.pattern == "patchy"`, Reason: "patchy hair loss needs an in-person assessment"},
				{When: `answers.sex == "female" && has(answers.pregnant) && answers.pregnant == true`,
					Reason: "hair loss medication is not suitable during pregnancy"},
			},
			Keywords: []KeywordGroup{
				{Terms: []string{"minoxidil", "finasteride"}, Weight: 1},
				{When: `answers.sex == "male"`, Terms: []string{"finasteride"}, Weight: 3},
				{When: `answers.sex == "female"`, Terms: []string{"minoxidil", "biotin"}, Weight: 3},
				{When: `answers.pattern == "thinning"`, Terms: []string{"foam", "serum"}, Weight: 2},
			},
			Explanation: "{product} matches the hair loss pattern you described and can be started at home.",
		},
		{
			Name:     CategoryWeightLoss,
			Required: []string{"age", "bmi"},
			Rules: []Rule{
				{When: `answers.age < 18.0`, Reason: "you must be 18 or older for this treatment"},
				{When: `answers.bmi < 27.0`, Reason: "a BMI of 27 or higher is required"},
				{When: `has(answers.pregnant) && answers.pregnant == true`,
					Reason: "weight loss medication is not suitable during pregnancy"},
				{When: `has(answers.thyroid_cancer_history) && answers.thyroid_cancer_history == true`,
					Reason: "a history of thyroid cancer rules out GLP-1 treatment"},
			},
			Keywords: []KeywordGroup{
				{Terms: []string{"semaglutide", "tirzepatide"}, Weight: 1},
				{When: `answers.bmi >= 35.0`, Terms: []string{"tirzepatide"}, Weight: 3},
				{When: `answers.bmi < 35.0`, Terms: []string{"semaglutide"}, Weight: 2},
				{When: `has(answers.prefers_oral) && answers.prefers_oral == true`, Terms: []string{"oral", "tablet"}, Weight: 3},
			},
			Explanation: "{product} fits your BMI range and the treatment preferences you shared.",
		},
		{
			Name:     CategorySkinCare,
			Required: []string{"age", "concern"},
			Rules: []Rule{
				{When: `answers.age < 12.0`, Reason: "you must be 12 or older for this treatment"},
				{When: `answers.concern == "aging" && has(answers.pregnant) && answers.pregnant == true`,
					Reason: "retinoids are not suitable during pregnancy"},
			},
			Keywords: []KeywordGroup{
				{Terms: []string{"cream"}, Weight: 1},
				{When: `answers.concern == "acne"`, Terms: []string{"tretinoin", "clindamycin", "acne"}, Weight: 3},
				{When: `answers.concern == "aging"`, Terms: []string{"tretinoin", "retinol", "anti-aging"}, Weight: 3},
				{When: `answers.concern == "pigmentation"`, Terms: []string{"hydroquinone", "brightening"}, Weight: 3},
			},
			Explanation: "{product} targets the skin concern you selected.",
		},
		{
			Name:     CategorySexualHealth,
			Required: []string{"age", "concern"},
			Rules: []Rule{
				{When: `answers.age < 18.0`, Reason: "you must be 18 or older for this treatment"},
				{When: `has(answers.nitrates) && answers.nitrates == true`,
					Reason: "this treatment cannot be combined with nitrate medication"},
			},
			Keywords: []KeywordGroup{
				{When: `answers.concern == "ed"`, Terms: []string{"sildenafil", "tadalafil"}, Weight: 2},
				{When: `has(answers.frequency) && answers.frequency == "daily"`, Terms: []string{"daily", "tadalafil"}, Weight: 3},
				{When: `has(answers.frequency) && answers.frequency == "occasional"`, Terms: []string{"sildenafil"}, Weight: 3},
				{When: `answers.concern == "pe"`, Terms: []string{"sertraline", "spray"}, Weight: 3},
			},
			Explanation: "{product} is commonly prescribed for the concern and usage pattern you described.",
		},
	}
}
