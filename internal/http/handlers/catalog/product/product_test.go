package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/logger"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/catalog"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Product(ctx context.Context, slug string) (*models.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func TestProductHandler(t *testing.T) {
	tests := []struct {
		name           string
		slug           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "товар найден",
			slug: "minoxidil-foam",
			setupMock: func(m *MockService) {
				m.On("Product", mock.Anything, "minoxidil-foam").Return(&models.Product{ID: "p1", Slug: "minoxidil-foam"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"id":"p1"`,
		},
		{
			name: "неизвестный slug с подсказками",
			slug: "minoxidl-foam",
			setupMock: func(m *MockService) {
				err := fmt.Errorf("services.catalog.Product: %w",
					&catalog.ProductNotFoundError{Slug: "minoxidl-foam", Suggestions: []string{"minoxidil-foam"}})
				m.On("Product", mock.Anything, "minoxidl-foam").Return(nil, err)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"suggestions":["minoxidil-foam"]`,
		},
		{
			name: "ошибка CMS",
			slug: "x",
			setupMock: func(m *MockService) {
				m.On("Product", mock.Anything, "x").Return(nil, errors.New("cms down"))
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"status":"Error","error":"could not load product"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/products/"+tt.slug, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("slug", tt.slug)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			New(logger.Discard(), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
