package validate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

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

func (m *MockService) Validate(ctx context.Context, code, planID string, amount decimal.Decimal, now time.Time) (*models.CouponQuote, error) {
	args := m.Called(ctx, code, planID, amount, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CouponQuote), args.Error(1)
}

func TestValidateHandler(t *testing.T) {
	amount := decimal.RequireFromString("80.00")

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "купон применён",
			body: `{"code":"SAVE10","plan_id":"hair","amount":"80.00"}`,
			setupMock: func(m *MockService) {
				m.On("Validate", mock.Anything, "SAVE10", "hair", amount, mock.AnythingOfType("time.Time")).Return(&models.CouponQuote{
					Code:           "SAVE10",
					OriginalAmount: amount,
					DiscountAmount: decimal.RequireFromString("8.00"),
					FinalAmount:    decimal.RequireFromString("72.00"),
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"final_amount":"72"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "нет кода",
			body:           `{"amount":"10"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Code is a required field`,
		},
		{
			name:           "сумма не число",
			body:           `{"code":"SAVE10","amount":"ten"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid amount`,
		},
		{
			name: "купон истёк",
			body: `{"code":"OLD","amount":"80.00"}`,
			setupMock: func(m *MockService) {
				m.On("Validate", mock.Anything, "OLD", "", amount, mock.Anything).Return(nil, coupon.ErrCouponExpired)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `coupon has expired`,
		},
		{
			name: "лимит применений",
			body: `{"code":"FULL","amount":"80.00"}`,
			setupMock: func(m *MockService) {
				m.On("Validate", mock.Anything, "FULL", "", amount, mock.Anything).Return(nil, coupon.ErrCouponUsageLimit)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `coupon usage limit reached`,
		},
		{
			name: "купон не найден",
			body: `{"code":"NOPE","amount":"80.00"}`,
			setupMock: func(m *MockService) {
				m.On("Validate", mock.Anything, "NOPE", "", amount, mock.Anything).Return(nil, coupon.ErrCouponNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `coupon not found`,
		},
		{
			name: "ошибка хранилища",
			body: `{"code":"SAVE10","amount":"80.00"}`,
			setupMock: func(m *MockService) {
				m.On("Validate", mock.Anything, "SAVE10", "", amount, mock.Anything).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not validate coupon`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/coupons/validate", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			New(logger.Discard(), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
