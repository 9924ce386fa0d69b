package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/logger"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/scheduling"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/subscription"
	"github.com/magabrotheeeer/telehealth-storefront/internal/storage"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateAppointment(ctx context.Context, a models.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *RepoMock) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *RepoMock) UpdateExamStatus(ctx context.Context, id, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *RepoMock) DueReminders(ctx context.Context, from, to time.Time, limit int) ([]*models.Appointment, error) {
	args := m.Called(ctx, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}

func (m *RepoMock) MarkReminded(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type SubscriptionsMock struct{ mock.Mock }

func (m *SubscriptionsMock) Get(ctx context.Context, user models.User, id string) (*models.UserSubscription, error) {
	args := m.Called(ctx, user, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSubscription), args.Error(1)
}

func (m *SubscriptionsMock) ConsumeAccess(ctx context.Context, user models.User, id string) (int64, error) {
	args := m.Called(ctx, user, id)
	return args.Get(0).(int64), args.Error(1)
}

type SchedulerMock struct{ mock.Mock }

func (m *SchedulerMock) CreateBooking(ctx context.Context, req scheduling.BookingRequest) (*scheduling.Booking, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scheduling.Booking), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, n models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

var (
	fixedNow  = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	patient   = models.User{UID: "user-1", Username: "alice", Email: "alice@example.com", Role: models.RolePatient}
	clinician = models.User{UID: "doc-1", Role: models.RoleClinician}
)

type fixture struct {
	repo      *RepoMock
	subs      *SubscriptionsMock
	scheduler *SchedulerMock
	publisher *PublisherMock
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:      new(RepoMock),
		subs:      new(SubscriptionsMock),
		scheduler: new(SchedulerMock),
		publisher: new(PublisherMock),
	}
	f.svc = New(f.repo, f.subs, f.scheduler, f.publisher, logger.Discard())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func activeSub() *models.UserSubscription {
	return &models.UserSubscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionActive}
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	start := fixedNow.Add(48 * time.Hour)
	req := models.DummyAppointment{SubscriptionID: "sub-1", Treatment: "hair_loss", StartTime: start, TimeZone: "Europe/Berlin"}

	t.Run("success", func(t *testing.T) {
		f := newFixture()
		f.subs.On("Get", ctx, patient, "sub-1").Return(activeSub(), nil)
		f.scheduler.On("CreateBooking", ctx, mock.MatchedBy(func(r scheduling.BookingRequest) bool {
			return r.Start.Equal(start) && r.Attendee.Email == patient.Email && r.Attendee.TimeZone == "Europe/Berlin"
		})).Return(&scheduling.Booking{UID: "bk_1", MeetingURL: "https://meet/1"}, nil)
		f.repo.On("CreateAppointment", ctx, mock.MatchedBy(func(a models.Appointment) bool {
			return a.ExamStatus == models.ExamPending && a.ExternalBookingID == "bk_1" && a.ScheduledAt.Equal(start)
		})).Return(nil)
		f.publisher.On("Publish", ctx, mock.MatchedBy(func(n models.Notification) bool {
			return n.Type == models.NotificationAppointmentBooked
		})).Return(nil)

		a, err := f.svc.Book(ctx, patient, req)
		require.NoError(t, err)
		assert.Equal(t, "https://meet/1", a.MeetingURL)
		assert.NotEmpty(t, a.ID)
		f.repo.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})

	tests := []struct {
		name    string
		sub     *models.UserSubscription
		subErr  error
		start   time.Time
		wantErr error
	}{
		{name: "subscription missing", subErr: subscription.ErrNotFound, start: start, wantErr: ErrSubscriptionNotFound},
		{name: "someone else's", subErr: subscription.ErrForbidden, start: start, wantErr: ErrForbidden},
		{
			name:    "pending subscription",
			sub:     &models.UserSubscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionPending},
			start:   start,
			wantErr: ErrSubscriptionInactive,
		},
		{
			name:    "access expired",
			sub:     &models.UserSubscription{ID: "sub-1", UserUID: "user-1", Status: models.SubscriptionActive, AccessExpired: true},
			start:   start,
			wantErr: ErrAccessExpired,
		},
		{name: "start in past", sub: activeSub(), start: fixedNow.Add(-time.Minute), wantErr: ErrStartInPast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			r := req
			r.StartTime = tt.start
			if tt.subErr != nil {
				f.subs.On("Get", ctx, patient, "sub-1").Return(nil, tt.subErr)
			} else {
				f.subs.On("Get", ctx, patient, "sub-1").Return(tt.sub, nil)
			}

			_, err := f.svc.Book(ctx, patient, r)
			assert.ErrorIs(t, err, tt.wantErr)
			f.scheduler.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
		})
	}

	t.Run("scheduling failure", func(t *testing.T) {
		f := newFixture()
		f.subs.On("Get", ctx, patient, "sub-1").Return(activeSub(), nil)
		f.scheduler.On("CreateBooking", ctx, mock.Anything).Return(nil, errors.New("502"))

		_, err := f.svc.Book(ctx, patient, req)
		assert.ErrorIs(t, err, ErrSchedulingUnavailable)
		f.repo.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
	})
}

func TestJoin(t *testing.T) {
	ctx := context.Background()
	appt := &models.Appointment{ID: "ap-1", UserUID: "user-1", SubscriptionID: "sub-1", MeetingURL: "https://meet/1", ExamStatus: models.ExamPending}

	t.Run("returns meeting url and remaining", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetAppointment", ctx, "ap-1").Return(appt, nil)
		f.subs.On("ConsumeAccess", ctx, patient, "sub-1").Return(int64(3600), nil)

		info, err := f.svc.Join(ctx, patient, "ap-1")
		require.NoError(t, err)
		assert.Equal(t, "https://meet/1", info.MeetingURL)
		assert.Equal(t, int64(3600), info.RemainingSeconds)
	})

	t.Run("expired access", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetAppointment", ctx, "ap-1").Return(appt, nil)
		f.subs.On("ConsumeAccess", ctx, patient, "sub-1").Return(int64(0), subscription.ErrAccessExpired)

		_, err := f.svc.Join(ctx, patient, "ap-1")
		assert.ErrorIs(t, err, ErrAccessExpired)
	})

	t.Run("clinician cannot consume patient access", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetAppointment", ctx, "ap-1").Return(appt, nil)

		_, err := f.svc.Join(ctx, clinician, "ap-1")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetAppointment", ctx, "nope").Return(nil, storage.ErrNotFound)

		_, err := f.svc.Join(ctx, patient, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateExamStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		user    models.User
		from    string
		to      string
		repoErr error
		wantErr error
	}{
		{name: "pending to in progress", user: clinician, from: models.ExamPending, to: models.ExamInProgress},
		{name: "pending to canceled", user: clinician, from: models.ExamPending, to: models.ExamCanceled},
		{name: "in progress to completed", user: clinician, from: models.ExamInProgress, to: models.ExamCompleted},
		{name: "pending to completed", user: clinician, from: models.ExamPending, to: models.ExamCompleted, wantErr: ErrInvalidTransition},
		{name: "completed is final", user: clinician, from: models.ExamCompleted, to: models.ExamCanceled, wantErr: ErrInvalidTransition},
		{name: "patient forbidden", user: patient, from: models.ExamPending, to: models.ExamInProgress, wantErr: ErrForbidden},
		{name: "concurrent change", user: clinician, from: models.ExamPending, to: models.ExamInProgress, repoErr: storage.ErrConflict, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.repo.On("GetAppointment", ctx, "ap-1").Return(&models.Appointment{ID: "ap-1", UserUID: "user-1", ExamStatus: tt.from}, nil)
			f.repo.On("UpdateExamStatus", ctx, "ap-1", tt.from, tt.to).Return(tt.repoErr).Maybe()

			a, err := f.svc.UpdateExamStatus(ctx, tt.user, "ap-1", tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, a.ExamStatus)
		})
	}
}

func TestSendReminders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	due := []*models.Appointment{
		{ID: "ap-1", Email: "a@example.com", ScheduledAt: fixedNow.Add(2 * time.Hour)},
		{ID: "ap-2", Email: "b@example.com", ScheduledAt: fixedNow.Add(3 * time.Hour)},
	}
	f.repo.On("DueReminders", ctx, fixedNow, fixedNow.Add(24*time.Hour), 100).Return(due, nil)
	f.publisher.On("Publish", ctx, mock.MatchedBy(func(n models.Notification) bool { return n.Email == "a@example.com" })).Return(nil)
	f.publisher.On("Publish", ctx, mock.MatchedBy(func(n models.Notification) bool { return n.Email == "b@example.com" })).Return(errors.New("broker down"))
	f.repo.On("MarkReminded", ctx, "ap-1").Return(nil)

	sent, err := f.svc.SendReminders(ctx, 24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	f.repo.AssertNotCalled(t, "MarkReminded", ctx, "ap-2")
	f.repo.AssertExpectations(t)
}
