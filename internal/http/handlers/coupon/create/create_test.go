package create

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/logger"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/coupon"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, req models.DummyCoupon) (*models.Coupon, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

func TestCreateHandler(t *testing.T) {
	valid := `{"code":"spring","discount_type":"percentage","discount_value":"15"}`

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "купон создан",
			body: valid,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(r models.DummyCoupon) bool {
					return r.Code == "spring" && r.DiscountValue == "15"
				})).Return(&models.Coupon{Code: "SPRING", DiscountType: models.DiscountPercentage,
					DiscountValue: decimal.RequireFromString("15"), Active: true}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"code":"SPRING"`,
		},
		{
			name:           "неизвестный тип скидки",
			body:           `{"code":"spring","discount_type":"bogo","discount_value":"1"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field DiscountType must be one of: percentage fixed`,
		},
		{
			name:           "запятая в id тарифа",
			body:           `{"code":"spring","discount_type":"fixed","discount_value":"5","plan_ids":["hair","skin,weight"]}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `must not contain`,
		},
		{
			name: "процент больше 100",
			body: `{"code":"spring","discount_type":"percentage","discount_value":"150"}`,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: percentage must be in (0, 100]", coupon.ErrInvalidCoupon))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `percentage must be in (0, 100]`,
		},
		{
			name: "дубликат кода",
			body: valid,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, coupon.ErrCouponExists)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `coupon code already exists`,
		},
		{
			name: "ошибка хранилища",
			body: valid,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not create coupon`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			New(logger.Discard(), svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/coupons", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
