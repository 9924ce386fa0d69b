package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/telehealth-storefront/internal/migrations"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	return storage
}

func TestIntegration_CouponUsageLimit(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	maxUses := 2
	err := s.CreateCoupon(ctx, models.Coupon{
		ID:            uuid.NewString(),
		Code:          "TWICE",
		DiscountType:  models.DiscountFixed,
		DiscountValue: decimal.NewFromInt(5),
		MaxUses:       &maxUses,
		Active:        true,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, s.RedeemCoupon(ctx, "TWICE"))
	require.NoError(t, s.RedeemCoupon(ctx, "TWICE"))
	require.ErrorIs(t, s.RedeemCoupon(ctx, "TWICE"), ErrLimitReached)

	c, err := s.GetCouponByCode(ctx, "TWICE")
	require.NoError(t, err)
	assert.Equal(t, 2, c.UsageCount)

	err = s.CreateCoupon(ctx, models.Coupon{
		ID:            uuid.NewString(),
		Code:          "TWICE",
		DiscountType:  models.DiscountFixed,
		DiscountValue: decimal.NewFromInt(1),
		Active:        true,
		CreatedAt:     time.Now(),
	})
	require.ErrorIs(t, err, ErrExists)
}

func TestIntegration_AccessWindowLifecycle(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	fresh := models.UserSubscription{
		ID:               uuid.NewString(),
		UserUID:          "user-1",
		PlanID:           "plan",
		VariantID:        "monthly",
		Status:           models.SubscriptionActive,
		Amount:           decimal.RequireFromString("29.99"),
		Currency:         "USD",
		CurrentPeriodEnd: now.AddDate(0, 1, 0),
		AccessDuration:   time.Hour,
		CreatedAt:        now,
	}
	lapsed := fresh
	lapsed.ID = uuid.NewString()
	require.NoError(t, s.CreateUserSubscription(ctx, fresh))
	require.NoError(t, s.CreateUserSubscription(ctx, lapsed))

	started, err := s.StartAccess(ctx, fresh.ID, now)
	require.NoError(t, err)
	assert.True(t, started)
	started, err = s.StartAccess(ctx, fresh.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, started)

	_, err = s.StartAccess(ctx, lapsed.ID, now.Add(-2*time.Hour))
	require.NoError(t, err)

	n, err := s.ExpireLapsedAccess(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetUserSubscription(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.True(t, got.AccessExpired)

	got, err = s.GetUserSubscription(ctx, fresh.ID)
	require.NoError(t, err)
	assert.False(t, got.AccessExpired)
	require.NotNil(t, got.AccessStartedAt)
	assert.True(t, now.Equal(*got.AccessStartedAt))

	list, err := s.ListUserSubscriptions(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestIntegration_PaymentEventAppliedOnce(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sub := models.UserSubscription{
		ID:               uuid.NewString(),
		UserUID:          "user-2",
		PlanID:           "plan",
		VariantID:        "monthly",
		Status:           models.SubscriptionActive,
		Amount:           decimal.RequireFromString("29.99"),
		Currency:         "USD",
		CurrentPeriodEnd: now,
		AccessDuration:   time.Hour,
		CreatedAt:        now,
	}
	require.NoError(t, s.CreateUserSubscription(ctx, sub))

	first := now.AddDate(0, 1, 0)
	applied, err := s.ApplyPaymentEvent(ctx, "payment.succeeded:pay_1", sub.ID, models.SubscriptionActive, &first)
	require.NoError(t, err)
	assert.True(t, applied)

	second := now.AddDate(0, 2, 0)
	applied, err = s.ApplyPaymentEvent(ctx, "payment.succeeded:pay_1", sub.ID, models.SubscriptionActive, &second)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := s.GetUserSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, first.Equal(got.CurrentPeriodEnd))
}

func TestIntegration_Appointments(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sub := models.UserSubscription{
		ID:               uuid.NewString(),
		UserUID:          "user-1",
		PlanID:           "plan",
		VariantID:        "monthly",
		Status:           models.SubscriptionActive,
		Amount:           decimal.NewFromInt(10),
		Currency:         "USD",
		CurrentPeriodEnd: now.AddDate(0, 1, 0),
		AccessDuration:   72 * time.Hour,
		CreatedAt:        now,
	}
	require.NoError(t, s.CreateUserSubscription(ctx, sub))

	appt := models.Appointment{
		ID:                uuid.NewString(),
		UserUID:           "user-1",
		SubscriptionID:    sub.ID,
		Treatment:         "hair_loss",
		ScheduledAt:       now.Add(3 * time.Hour),
		ExternalBookingID: "bk-1",
		ExamStatus:        models.ExamPending,
		CreatedAt:         now,
	}
	require.NoError(t, s.CreateAppointment(ctx, appt))

	due, err := s.DueReminders(ctx, now, now.Add(24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.NoError(t, s.MarkReminded(ctx, appt.ID))
	due, err = s.DueReminders(ctx, now, now.Add(24*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, s.UpdateExamStatus(ctx, appt.ID, models.ExamPending, models.ExamInProgress))
	require.ErrorIs(t, s.UpdateExamStatus(ctx, appt.ID, models.ExamPending, models.ExamCanceled), ErrConflict)

	got, err := s.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExamInProgress, got.ExamStatus)
	assert.True(t, got.ReminderSent)
}
