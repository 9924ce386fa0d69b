package models

// DummyRecommendation запрос рекомендации по ответам анкеты.
type DummyRecommendation struct {
	Category string         `json:"category" validate:"required"`
	Answers  map[string]any `json:"answers" validate:"required"`
}

// Recommendation результат подбора товара.
type Recommendation struct {
	Category    string   `json:"category"`
	Eligible    bool     `json:"eligible"`
	Reasons     []string `json:"reasons,omitempty"`
	Product     *Product `json:"product,omitempty"`
	Score       int      `json:"score"`
	Explanation string   `json:"explanation"`
}
