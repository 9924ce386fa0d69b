package recommend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/logger"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/recommendation"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Recommend(ctx context.Context, req models.DummyRecommendation) (*models.Recommendation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recommendation), args.Error(1)
}

func TestRecommendHandler(t *testing.T) {
	body := `{"category":"hair_loss","answers":{"age":30,"sex":"male","pattern":"receding"}}`

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "товар подобран",
			body: body,
			setupMock: func(m *MockService) {
				m.On("Recommend", mock.Anything, mock.MatchedBy(func(r models.DummyRecommendation) bool {
					return r.Category == "hair_loss" && r.Answers["sex"] == "male"
				})).Return(&models.Recommendation{
					Category: "hair_loss", Eligible: true, Score: 4,
					Product: &models.Product{ID: "p2", Title: "Finasteride Tablets"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"score":4`,
		},
		{
			name: "не допущен",
			body: body,
			setupMock: func(m *MockService) {
				m.On("Recommend", mock.Anything, mock.Anything).Return(&models.Recommendation{
					Category: "hair_loss", Eligible: false, Reasons: []string{"you must be 18 or older for this treatment"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"eligible":false`,
		},
		{
			name:           "нет категории",
			body:           `{"answers":{}}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Category is a required field`,
		},
		{
			name: "не хватает ответов",
			body: body,
			setupMock: func(m *MockService) {
				m.On("Recommend", mock.Anything, mock.Anything).
					Return(nil, &recommendation.MissingAnswersError{Missing: []string{"pattern"}})
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"missing":["pattern"]`,
		},
		{
			name: "неизвестная категория",
			body: `{"category":"dental","answers":{}}`,
			setupMock: func(m *MockService) {
				m.On("Recommend", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("op: %w", recommendation.ErrUnknownCategory))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `unknown category`,
		},
		{
			name: "ошибка CMS",
			body: body,
			setupMock: func(m *MockService) {
				m.On("Recommend", mock.Anything, mock.Anything).Return(nil, errors.New("cms down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not build recommendation`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			New(logger.Discard(), svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/recommendations", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
