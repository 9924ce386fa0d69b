// Package subscription оформляет подписки на тарифы, обрабатывает события оплаты
// и ведёт окно доступа к телемедицинской сессии.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/period"
	"github.com/magabrotheeeer/telehealth-storefront/internal/lib/sl"
	"github.com/magabrotheeeer/telehealth-storefront/internal/models"
	"github.com/magabrotheeeer/telehealth-storefront/internal/paymentprovider"
	"github.com/magabrotheeeer/telehealth-storefront/internal/services/catalog"
	"github.com/magabrotheeeer/telehealth-storefront/internal/storage"
)

var (
	ErrNotFound             = errors.New("subscription not found")
	ErrForbidden            = errors.New("subscription belongs to another user")
	ErrPlanNotFound         = errors.New("plan or variant not found")
	ErrCouponRejected       = errors.New("coupon rejected")
	ErrPaymentUnavailable   = errors.New("payment provider unavailable")
	ErrSubscriptionInactive = errors.New("subscription is not active")
	ErrAccessExpired        = errors.New("appointment access has expired")
	ErrUnsupportedEvent     = errors.New("unsupported payment event")
	ErrInvalidEvent         = errors.New("payment event without object id")
)

// Repository хранилище пользовательских подписок.
type Repository interface {
	CreateUserSubscription(ctx context.Context, sub models.UserSubscription) error
	GetUserSubscription(ctx context.Context, id string) (*models.UserSubscription, error)
	GetUserSubscriptionByProviderID(ctx context.Context, providerID string) (*models.UserSubscription, error)
	ListUserSubscriptions(ctx context.Context, userUID string, limit, offset int) ([]*models.UserSubscription, error)
	UpdateUserSubscriptionStatus(ctx context.Context, id, status string, periodEnd *time.Time) error
	ApplyPaymentEvent(ctx context.Context, eventKey, id, status string, periodEnd *time.Time) (bool, error)
	StartAccess(ctx context.Context, id string, at time.Time) (bool, error)
	MarkAccessExpired(ctx context.Context, id string) error
	ExpireLapsedAccess(ctx context.Context, now time.Time) (int64, error)
}

// Catalog поиск тарифа и варианта.
type Catalog interface {
	PlanVariant(ctx context.Context, planID, variantID string) (*models.Plan, models.Variant, error)
}

// Coupons проверка и применение купонов.
type Coupons interface {
	Validate(ctx context.Context, code, planID string, amount decimal.Decimal, now time.Time) (*models.CouponQuote, error)
	Redeem(ctx context.Context, code string) error
}

// Prices выдаёт ID цены провайдера для варианта.
type Prices interface {
	EnsurePrice(ctx context.Context, plan *models.Plan, v models.Variant) (string, error)
}

// Provider регулярные платежи у провайдера.
type Provider interface {
	CreateSubscription(ctx context.Context, req paymentprovider.CreateSubscriptionRequest) (*paymentprovider.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Publisher отправляет уведомления.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// Deps зависимости сервиса.
type Deps struct {
	Repo          Repository
	Catalog       Catalog
	Coupons       Coupons
	Prices        Prices
	Provider      Provider
	Publisher     Publisher
	DefaultAccess time.Duration
}

// Service бизнес-логика подписок.
type Service struct {
	repo          Repository
	catalog       Catalog
	coupons       Coupons
	prices        Prices
	provider      Provider
	publisher     Publisher
	defaultAccess time.Duration
	now           func() time.Time
	log           *slog.Logger
}

// New создаёт сервис подписок.
func New(deps Deps, log *slog.Logger) *Service {
	return &Service{
		repo:          deps.Repo,
		catalog:       deps.Catalog,
		coupons:       deps.Coupons,
		prices:        deps.Prices,
		provider:      deps.Provider,
		publisher:     deps.Publisher,
		defaultAccess: deps.DefaultAccess,
		now:           func() time.Time { return time.Now().UTC() },
		log:           log,
	}
}

// Create оформляет подписку пользователя на вариант тарифа. Подписка сохраняется
// в статусе pending и активируется webhook-ом об успешной оплате. Применение купона
// и публикация уведомления после создания подписки не влияют на результат.
func (s *Service) Create(ctx context.Context, user models.User, req models.DummySubscription) (*models.SubscriptionCheckout, error) {
	const op = "services.subscription.Create"
	log := s.log.With(sl.Op(op), slog.String("user_uid", user.UID))
	now := s.now()

	plan, variant, err := s.catalog.PlanVariant(ctx, req.PlanID, req.VariantID)
	if err != nil {
		if errors.Is(err, catalog.ErrPlanNotFound) || errors.Is(err, catalog.ErrVariantNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !variant.Price.IsPositive() {
		log.Warn("variant without valid price requested", slog.String("plan_id", plan.ID), slog.String("variant_id", variant.ID))
		return nil, fmt.Errorf("%w: variant %s has no valid price", ErrPlanNotFound, variant.ID)
	}

	amount := variant.Price
	var quote *models.CouponQuote
	if req.CouponCode != "" {
		quote, err = s.coupons.Validate(ctx, req.CouponCode, plan.ID, amount, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCouponRejected, err)
		}
		amount = quote.FinalAmount
	}

	priceID, err := s.prices.EnsurePrice(ctx, plan, variant)
	if err != nil {
		log.Error("failed to ensure provider price", sl.Err(err))
		return nil, fmt.Errorf("%w: %w", ErrPaymentUnavailable, err)
	}

	id := uuid.NewString()
	providerReq := paymentprovider.CreateSubscriptionRequest{
		PriceID:       priceID,
		CustomerID:    user.UID,
		CustomerEmail: user.Email,
		Metadata: map[string]string{
			"user_uid":        user.UID,
			"subscription_id": id,
		},
	}
	if quote != nil && quote.DiscountAmount.IsPositive() {
		providerReq.Discount = &paymentprovider.Amount{
			Value:    quote.DiscountAmount.StringFixed(2),
			Currency: variant.Currency,
		}
	}
	providerSub, err := s.provider.CreateSubscription(ctx, providerReq)
	if err != nil {
		log.Error("failed to create provider subscription", sl.Err(err))
		return nil, fmt.Errorf("%w: %w", ErrPaymentUnavailable, err)
	}

	periodEnd, err := period.End(now, variant.BillingPeriod, variant.IntervalCount)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	access := plan.AppointmentAccess
	if access <= 0 {
		access = s.defaultAccess
	}

	sub := models.UserSubscription{
		ID:                     id,
		UserUID:                user.UID,
		Email:                  user.Email,
		PlanID:                 plan.ID,
		VariantID:              variant.ID,
		ProviderSubscriptionID: providerSub.ID,
		Status:                 models.SubscriptionPending,
		Amount:                 amount,
		Currency:               variant.Currency,
		CurrentPeriodEnd:       periodEnd,
		AccessDuration:         access,
		CreatedAt:              now,
	}
	if quote != nil {
		sub.CouponCode = quote.Code
	}

	if err := s.repo.CreateUserSubscription(ctx, sub); err != nil {
		if cancelErr := s.provider.CancelSubscription(ctx, providerSub.ID); cancelErr != nil {
			log.Error("failed to cancel orphaned provider subscription",
				slog.String("provider_subscription_id", providerSub.ID), sl.Err(cancelErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if quote != nil {
		if err := s.coupons.Redeem(ctx, quote.Code); err != nil {
			log.Warn("failed to redeem coupon", slog.String("code", quote.Code), sl.Err(err))
		}
	}

	s.notify(ctx, log, models.Notification{
		Type:     models.NotificationSubscriptionCreated,
		Email:    user.Email,
		Username: user.Username,
		Data: map[string]string{
			"plan":     plan.Title,
			"variant":  variant.Title,
			"amount":   amount.StringFixed(2),
			"currency": variant.Currency,
		},
	})

	log.Info("subscription created", slog.String("subscription_id", id), slog.String("plan_id", plan.ID))
	return &models.SubscriptionCheckout{
		Subscription:    &sub,
		ConfirmationURL: providerSub.ConfirmationURL,
		Coupon:          quote,
	}, nil
}

// Get возвращает подписку владельца. Сотрудники видят любые подписки.
func (s *Service) Get(ctx context.Context, user models.User, id string) (*models.UserSubscription, error) {
	const op = "services.subscription.Get"

	sub, err := s.repo.GetUserSubscription(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub.UserUID != user.UID && !user.IsStaff() {
		return nil, ErrForbidden
	}
	return sub, nil
}

// List возвращает подписки пользователя.
func (s *Service) List(ctx context.Context, user models.User, limit, offset int) ([]*models.UserSubscription, error) {
	const op = "services.subscription.List"

	subs, err := s.repo.ListUserSubscriptions(ctx, user.UID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subs, nil
}

// Cancel отменяет подписку у провайдера и локально. Повторная отмена ничего не делает.
func (s *Service) Cancel(ctx context.Context, user models.User, id string) (*models.UserSubscription, error) {
	const op = "services.subscription.Cancel"

	sub, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubscriptionCanceled {
		return sub, nil
	}

	if sub.ProviderSubscriptionID != "" {
		if err := s.provider.CancelSubscription(ctx, sub.ProviderSubscriptionID); err != nil {
			s.log.Error("failed to cancel provider subscription", sl.Op(op),
				slog.String("subscription_id", id), sl.Err(err))
			return nil, fmt.Errorf("%w: %w", ErrPaymentUnavailable, err)
		}
	}
	if err := s.repo.UpdateUserSubscriptionStatus(ctx, id, models.SubscriptionCanceled, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.Status = models.SubscriptionCanceled
	return sub, nil
}

// HandlePaymentEvent применяет событие провайдера к подписке:
// payment.succeeded — active (продление периода для уже оплаченной подписки),
// payment.canceled — past_due, refund.succeeded — canceled.
// Каждое событие применяется один раз по ключу event + object.id, отменённая
// подписка платёжными событиями не возобновляется.
func (s *Service) HandlePaymentEvent(ctx context.Context, event paymentprovider.WebhookEvent) error {
	const op = "services.subscription.HandlePaymentEvent"

	if event.Object.ID == "" {
		return ErrInvalidEvent
	}
	sub, err := s.findForEvent(ctx, event)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	log := s.log.With(sl.Op(op), slog.String("subscription_id", sub.ID),
		slog.String("event", event.Event), slog.String("payment_id", event.Object.ID))

	var (
		status    string
		periodEnd *time.Time
	)
	switch event.Event {
	case paymentprovider.EventPaymentSucceeded:
		if sub.Status == models.SubscriptionCanceled {
			log.Info("payment succeeded for canceled subscription, ignored")
			return nil
		}
		status = models.SubscriptionActive
		if sub.Status == models.SubscriptionActive || sub.Status == models.SubscriptionPastDue {
			end, err := s.renewedPeriodEnd(ctx, sub)
			if err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			periodEnd = &end
		}
	case paymentprovider.EventPaymentCanceled:
		if sub.Status == models.SubscriptionCanceled {
			log.Info("payment canceled for canceled subscription, ignored")
			return nil
		}
		status = models.SubscriptionPastDue
	case paymentprovider.EventRefundSucceeded:
		status = models.SubscriptionCanceled
	default:
		return ErrUnsupportedEvent
	}

	applied, err := s.repo.ApplyPaymentEvent(ctx, event.Event+":"+event.Object.ID, sub.ID, status, periodEnd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		log.Info("payment event already processed, ignored")
		return nil
	}
	log.Info("subscription status updated", slog.String("from", sub.Status), slog.String("to", status))
	return nil
}

func (s *Service) findForEvent(ctx context.Context, event paymentprovider.WebhookEvent) (*models.UserSubscription, error) {
	if event.Object.SubscriptionID != "" {
		return s.repo.GetUserSubscriptionByProviderID(ctx, event.Object.SubscriptionID)
	}
	if id := event.Object.Metadata["subscription_id"]; id != "" {
		return s.repo.GetUserSubscription(ctx, id)
	}
	return nil, storage.ErrNotFound
}

// renewedPeriodEnd продлевает период от его конца или от текущего момента, если период уже истёк.
func (s *Service) renewedPeriodEnd(ctx context.Context, sub *models.UserSubscription) (time.Time, error) {
	_, variant, err := s.catalog.PlanVariant(ctx, sub.PlanID, sub.VariantID)
	if err != nil {
		return time.Time{}, err
	}
	from := sub.CurrentPeriodEnd
	if now := s.now(); from.Before(now) {
		from = now
	}
	return period.End(from, variant.BillingPeriod, variant.IntervalCount)
}

func (s *Service) notify(ctx context.Context, log *slog.Logger, n models.Notification) {
	if s.publisher == nil || n.Email == "" {
		return
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		log.Warn("failed to publish notification", slog.String("type", n.Type), sl.Err(err))
	}
}
