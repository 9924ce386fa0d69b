package access

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/telehealth-storefront/internal/http/middlewarectx"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/logger"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) AccessStatus(ctx context.Context, user models.User, id string) (*models.AccessStatus, error) {
	args := m.Called(ctx, user, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccessStatus), args.Error(1)
}

func TestAccessHandler(t *testing.T) {
	user := models.User{UID: "user-1", Role: models.RolePatient}

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "доступ открыт",
			setupMock: func(m *MockService) {
				m.On("AccessStatus", mock.Anything, user, "sub-1").Return(&models.AccessStatus{
					SubscriptionID:   "sub-1",
					Allowed:          true,
					Started:          true,
					RemainingSeconds: 3600,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"remaining_seconds":3600`,
		},
		{
			name: "окно истекло",
			setupMock: func(m *MockService) {
				m.On("AccessStatus", mock.Anything, user, "sub-1").Return(&models.AccessStatus{
					SubscriptionID: "sub-1",
					Expired:        true,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"expired":true`,
		},
		{
			name: "не найдена",
			setupMock: func(m *MockService) {
				m.On("AccessStatus", mock.Anything, user, "sub-1").Return(nil, subscription.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `subscription not found`,
		},
		{
			name: "ошибка хранилища",
			setupMock: func(m *MockService) {
				m.On("AccessStatus", mock.Anything, user, "sub-1").Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not check access`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "sub-1")
			ctx := context.WithValue(context.Background(), chi.RouteCtxKey, rctx)
			ctx = middlewarectx.WithUser(ctx, user)

			r := httptest.NewRequest(http.MethodGet, "/subscriptions/sub-1/access", nil).WithContext(ctx)
			w := httptest.NewRecorder()
			New(logger.Discard(), svc).ServeHTTP(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
