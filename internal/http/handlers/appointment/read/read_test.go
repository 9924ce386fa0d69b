package read

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
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/appointment"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, user models.User, id string) (*models.Appointment, error) {
	args := m.Called(ctx, user, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func TestReadHandler(t *testing.T) {
	clinician := models.User{UID: "doc-1", Role: models.RoleClinician}

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "запись найдена",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, clinician, "appt-1").
					Return(&models.Appointment{ID: "appt-1", Treatment: "hair_loss"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"treatment":"hair_loss"`,
		},
		{
			name: "не найдена",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, clinician, "appt-1").Return(nil, appointment.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `appointment not found`,
		},
		{
			name: "чужая запись",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, clinician, "appt-1").Return(nil, appointment.ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `forbidden`,
		},
		{
			name: "ошибка хранилища",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, clinician, "appt-1").Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not get appointment`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", "appt-1")
			ctx := context.WithValue(context.Background(), chi.RouteCtxKey, rctx)
			ctx = middlewarectx.WithUser(ctx, clinician)

			r := httptest.NewRequest(http.MethodGet, "/appointments/appt-1", nil).WithContext(ctx)
			w := httptest.NewRecorder()
			New(logger.Discard(), svc).ServeHTTP(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
