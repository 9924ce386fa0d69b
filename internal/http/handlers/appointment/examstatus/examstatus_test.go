package examstatus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
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

func (m *MockService) UpdateExamStatus(ctx context.Context, user models.User, id, to string) (*models.Appointment, error) {
	args := m.Called(ctx, user, id, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func TestExamStatusHandler(t *testing.T) {
	clinician := models.User{UID: "doc-1", Role: models.RoleClinician}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "осмотр начат",
			body: `{"status":"in_progress"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateExamStatus", mock.Anything, clinician, "appt-1", models.ExamInProgress).
					Return(&models.Appointment{ID: "appt-1", ExamStatus: models.ExamInProgress}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"exam_status":"in_progress"`,
		},
		{
			name:           "неизвестный статус",
			body:           `{"status":"pending"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Status must be one of: in_progress completed canceled`,
		},
		{
			name: "недопустимый переход",
			body: `{"status":"completed"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateExamStatus", mock.Anything, clinician, "appt-1", models.ExamCompleted).
					Return(nil, appointment.ErrInvalidTransition)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `invalid exam status transition`,
		},
		{
			name: "запись не найдена",
			body: `{"status":"canceled"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateExamStatus", mock.Anything, clinician, "appt-1", models.ExamCanceled).
					Return(nil, appointment.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `appointment not found`,
		},
		{
			name: "ошибка хранилища",
			body: `{"status":"canceled"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateExamStatus", mock.Anything, clinician, "appt-1", models.ExamCanceled).
					Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not update exam status`,
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

			r := httptest.NewRequest(http.MethodPatch, "/appointments/appt-1/exam-status", strings.NewReader(tt.body)).
				WithContext(ctx)
			w := httptest.NewRecorder()
			New(logger.Discard(), svc).ServeHTTP(w, r)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
