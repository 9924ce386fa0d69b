package create

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

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/logger"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/coupon"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, user models.User, req models.DummySubscription) (*models.SubscriptionCheckout, error) {
	args := m.Called(ctx, user, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionCheckout), args.Error(1)
}

func TestCreateHandler(t *testing.T) {
	user := models.User{UID: "user-1", Email: "a@example.com", Role: models.RolePatient}
	body := `{"plan_id":"hair","variant_id":"monthly","coupon_code":"SAVE10"}`
	req := models.DummySubscription{PlanID: "hair", VariantID: "monthly", CouponCode: "SAVE10"}

	tests := []struct {
		name           string
		body           string
		user           *models.User
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "подписка оформлена",
			body: body,
			user: &user,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, user, req).Return(&models.SubscriptionCheckout{
					Subscription:    &models.UserSubscription{ID: "sub-1", Status: models.SubscriptionPending},
					ConfirmationURL: "https://pay/confirm",
				}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"confirmation_url":"https://pay/confirm"`,
		},
		{
			name:           "без пользователя",
			body:           body,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `unauthorized`,
		},
		{
			name:           "нет варианта",
			body:           `{"plan_id":"hair"}`,
			user:           &user,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field VariantID is a required field`,
		},
		{
			name: "купон отклонён",
			body: body,
			user: &user,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, user, req).
					Return(nil, fmt.Errorf("%w: %w", subscription.ErrCouponRejected, coupon.ErrCouponExpired))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"coupon has expired"}`,
		},
		{
			name: "тариф не найден",
			body: body,
			user: &user,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, user, req).Return(nil, subscription.ErrPlanNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `plan or variant not found`,
		},
		{
			name: "провайдер недоступен",
			body: body,
			user: &user,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, user, req).
					Return(nil, fmt.Errorf("%w: %w", subscription.ErrPaymentUnavailable, errors.New("timeout")))
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `payment provider unavailable`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			r := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(tt.body))
			if tt.user != nil {
				r = r.WithContext(middlewarectx.WithUser(r.Context(), *tt.user))
			}
			w := httptest.NewRecorder()
			New(logger.Discard(), svc).ServeHTTP(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
